package static

import (
	"embed"
)

//go:embed css js favicon.svg
var Files embed.FS
