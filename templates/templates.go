package templates

import (
	"bufio"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/tdewolff/minify"

	"github.com/rainbowsvgs/spectra/utils"
)

var (
	//go:embed *
	Files embed.FS
)

var compiledTemplates = make(map[string]*template.Template)
var compiledTemplatesMux = &sync.RWMutex{}
var templateFuncs = utils.GetTemplateFuncs()

// GetTemplate parses and caches the named template files from the
// embedded fs. With frontend debug enabled the files are re-read from
// disk on every call so template changes show up without a rebuild.
func GetTemplate(files ...string) *template.Template {
	name := strings.Join(files, "-")

	if utils.Config.Frontend.Debug {
		diskFiles := make([]string, len(files))
		for i, file := range files {
			if strings.HasPrefix(file, "templates") {
				diskFiles[i] = file
			} else {
				diskFiles[i] = "templates/" + file
			}
		}
		return template.Must(template.New(name).Funcs(template.FuncMap(templateFuncs)).ParseFiles(diskFiles...))
	}

	compiledTemplatesMux.RLock()
	if compiledTemplates[name] != nil {
		defer compiledTemplatesMux.RUnlock()
		return compiledTemplates[name]
	}
	compiledTemplatesMux.RUnlock()

	tmpl := template.New(name).Funcs(template.FuncMap(templateFuncs))
	tmpl = template.Must(parseEmbeddedFiles(tmpl, files...))
	compiledTemplatesMux.Lock()
	defer compiledTemplatesMux.Unlock()
	compiledTemplates[name] = tmpl
	return compiledTemplates[name]
}

func parseEmbeddedFiles(t *template.Template, filenames ...string) (*template.Template, error) {
	for _, filename := range filenames {
		b, err := fs.ReadFile(Files, filename)
		if err != nil {
			return nil, err
		}

		if utils.Config.Frontend.Minify {
			m := minify.New()
			m.AddFunc("text/html", minifyTemplate)
			b, err = m.Bytes("text/html", b)
			if err != nil {
				panic(err)
			}
		}

		name := path.Base(filename)
		var tmpl *template.Template
		if name == t.Name() {
			tmpl = t
		} else {
			tmpl = t.New(name)
		}
		_, err = tmpl.Parse(string(b))
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// minifyTemplate strips newlines and collapses runs of whitespace.
func minifyTemplate(m *minify.M, w io.Writer, r io.Reader, _ map[string]string) error {
	stripNewlines := regexp.MustCompile(`([ \t]+)?[\r\n]+`)
	collapseSpaces := regexp.MustCompile(`([ \t])[ \t]+`)
	rb := bufio.NewReader(r)
	for {
		line, err := rb.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		line = stripNewlines.ReplaceAllString(line, "")
		line = collapseSpaces.ReplaceAllString(line, " ")
		if _, errws := io.WriteString(w, line); errws != nil {
			return errws
		}
		if err == io.EOF {
			break
		}
	}
	return nil
}
