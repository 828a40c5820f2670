package handlers

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/webtools-portal/internal/common"
)

// PageHandler renders HTML pages from Go templates and serves static files.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
}

// TemplateFuncs are available to every page template.
var TemplateFuncs = template.FuncMap{
	"formatDate": common.FormatDate,
	"capitalize": common.Capitalize,
	"hostname":   common.Hostname,
	"truncate":   common.Truncate,
}

// NewPageHandler creates a new page handler that loads templates from the pages directory.
func NewPageHandler(logger *common.Logger, devMode bool) *PageHandler {
	pagesDir := FindPagesDir()

	templates := template.Must(template.New("pages").Funcs(TemplateFuncs).ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))

	return &PageHandler{
		logger:    logger,
		templates: templates,
		devMode:   devMode,
	}
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// Render executes templateName with data, answering 500 on failure.
func (h *PageHandler) Render(w http.ResponseWriter, templateName string, data map[string]interface{}) {
	data["DevMode"] = h.devMode

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, templateName, data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", templateName).Str("error", err.Error()).Msg("failed to render page")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	staticDir := filepath.Join(FindPagesDir(), "static")

	path := strings.TrimPrefix(r.URL.Path, "/static/")
	fullPath := filepath.Join(staticDir, path)

	// prevent directory traversal
	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absFullPath, absStaticDir+string(filepath.Separator)) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}
