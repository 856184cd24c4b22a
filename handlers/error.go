package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/services"
	"github.com/rainbowsvgs/spectra/templates"
	"github.com/rainbowsvgs/spectra/types/models"
	"github.com/rainbowsvgs/spectra/utils"
)

var InvalidPageModelError = errors.New("invalid page model")

type customFileServer struct {
	handler         http.Handler
	root            http.FileSystem
	notFoundHandler http.HandlerFunc
}

// CustomFileServer wraps a static file handler and renders the styled
// 404 page instead of the plain http.FileServer error.
func CustomFileServer(handler http.Handler, root http.FileSystem, notFoundHandler http.HandlerFunc) http.Handler {
	return &customFileServer{handler: handler, root: root, notFoundHandler: notFoundHandler}
}

func (cfs *customFileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
		r.URL.Path = upath
	}

	// probe the fs first so missing files hit the 404 page
	f, err := cfs.root.Open(path.Clean(upath))
	if err != nil {
		cfs.serveOpenError(err, w, r)
		return
	}
	defer f.Close()

	if _, err = f.Stat(); err != nil {
		cfs.serveOpenError(err, w, r)
		return
	}

	cfs.handler.ServeHTTP(w, r)
}

func (cfs *customFileServer) serveOpenError(err error, w http.ResponseWriter, r *http.Request) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfs.notFoundHandler(w, r)
	case errors.Is(err, fs.ErrPermission):
		http.Error(w, "403 Forbidden", http.StatusForbidden)
	default:
		logrus.WithError(err).Errorf("static file handler error")
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
	}
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	templateFiles := append(layoutTemplateFiles, "_layout/404.html")
	notFoundTemplate := templates.GetTemplate(templateFiles...)
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusNotFound)
	data := InitPageData(w, r, "claim", r.URL.Path, "Not Found", templateFiles)
	err := notFoundTemplate.ExecuteTemplate(w, "layout", data)
	if err != nil {
		logrus.Errorf("error executing not-found template for %v route: %v", r.URL.String(), err)
		http.Error(w, "Internal server error", http.StatusServiceUnavailable)
	}
}

// handlePageError renders the error page for a failed page build. Page
// timeouts and panics from the frontend cache carry a stack trace that
// is included on the rendered page.
func handlePageError(w http.ResponseWriter, r *http.Request, pageError error) {
	templateFiles := append(layoutTemplateFiles, "_layout/500.html")
	errorTemplate := templates.GetTemplate(templateFiles...)
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusInternalServerError)
	data := InitPageData(w, r, "claim", r.URL.Path, "Internal Error", templateFiles)
	errData := &models.ErrorPageData{
		CallTime: time.Now(),
		CallUrl:  r.URL.String(),
		ErrorMsg: pageError.Error(),
		Version:  utils.GetExplorerVersion(),
	}
	var fcError *services.FrontendCachePageError
	if errors.As(pageError, &fcError) {
		errData.StackTrace = fcError.Stack()
	}
	data.Data = errData
	err := errorTemplate.ExecuteTemplate(w, "layout", data)
	if err != nil {
		logrus.Errorf("error executing page error template for %v route: %v", r.URL.String(), err)
		http.Error(w, "Internal server error", http.StatusServiceUnavailable)
	}
}
