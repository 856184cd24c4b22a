package types

import "html/template"

// PageData is a struct to hold web page data
type PageData struct {
	Active           string
	Meta             *Meta
	Data             interface{}
	Version          string
	Year             int
	ExplorerTitle    string
	ExplorerSubtitle string
	ChainName        string
	ChainId          uint64
	CollectionSize   uint64
	ExplorerLink     string
	IsReady          bool
	InfoBanner       *template.HTML
	Lang             string
	DarkMode         bool
	ShowCollection   bool
	Debug            bool
	DebugTemplates   []string
	MainMenuItems    []MainMenuItem
	ApiEnabled       bool
}

type MainMenuItem struct {
	Label    string
	Path     string
	IsActive bool
}

// Meta is a struct to hold metadata about the page
type Meta struct {
	Title       string
	Description string
	Domain      string
	Path        string
}

type Empty struct{}
