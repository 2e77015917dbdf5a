package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"assetmap/internal/assets"
	"assetmap/internal/mapview"
)

//go:embed web/templates/*.html
var templateFS embed.FS

//go:embed web/static
var staticFS embed.FS

type pageSet map[string]*template.Template

func mustParsePages() pageSet {
	pages := pageSet{}
	for _, name := range []string{"dashboard", "upload", "notfound"} {
		pages[name] = template.Must(template.ParseFS(templateFS, "web/templates/base.html", "web/templates/"+name+".html"))
	}
	return pages
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type flash struct {
	Category string
	Text     string
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Title    string
	Messages []flash

	// Dashboard only.
	View       mapview.View
	Conditions []option
	AssetTypes []option
	Search     string
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, name string, data pageData) {
	if data.Title == "" {
		data.Title = "Scotland Asset Map"
	}
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "base", data); err != nil {
		h.log.Error().Err(err).Str("page", name).Msg("render page failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r.URL.Query())

	conditions := make([]option, 0, len(assets.Conditions))
	for _, c := range assets.Conditions {
		conditions = append(conditions, option{Value: c, Label: strings.ToUpper(c[:1]) + c[1:], Selected: c == f.Condition})
	}

	var types []option
	if h.assets != nil {
		names, err := h.assets.ListAssetTypes(r.Context())
		if err != nil {
			h.log.Warn().Err(err).Msg("dashboard asset types unavailable")
		}
		for _, t := range names {
			types = append(types, option{Value: t, Label: t, Selected: t == f.AssetType})
		}
	}

	h.renderPage(w, http.StatusOK, "dashboard", pageData{
		View:       mapview.DefaultView,
		Conditions: conditions,
		AssetTypes: types,
		Search:     f.Search,
	})
}

func (h *Handler) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, "upload", pageData{Title: "Upload Asset Data"})
}

func (h *Handler) handleUploadSubmit(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Upload Asset Data"}

	if h.importer == nil {
		data.Messages = []flash{{Category: "danger", Text: "Database not configured."}}
		h.renderPage(w, http.StatusServiceUnavailable, "upload", data)
		return
	}

	file, fail := readUpload(w, r)
	if fail != nil {
		data.Messages = []flash{{Category: "danger", Text: fail.Message}}
		h.renderPage(w, fail.Status, "upload", data)
		return
	}
	defer file.Close()

	out, fail := h.importCSV(r.Context(), file)
	if fail != nil {
		msgs := fail.Messages
		if len(msgs) == 0 {
			msgs = []string{fail.Message}
		}
		for _, m := range msgs {
			data.Messages = append(data.Messages, flash{Category: "danger", Text: m})
		}
		h.renderPage(w, fail.Status, "upload", data)
		return
	}

	data.Messages = append(data.Messages, flash{Category: "success", Text: importSummary(out)})
	for _, m := range out.Errors {
		data.Messages = append(data.Messages, flash{Category: "warning", Text: m})
	}
	for _, m := range out.Warnings {
		data.Messages = append(data.Messages, flash{Category: "warning", Text: m})
	}
	h.renderPage(w, http.StatusOK, "upload", data)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		h.writeError(w, http.StatusNotFound, "not_found", "route not found", map[string]any{"path": r.URL.Path})
		return
	}
	h.renderPage(w, http.StatusNotFound, "notfound", pageData{Title: "Page not found"})
}
