package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/covid-dashboard/internal/llm"
	"github.com/capitalize-ai/covid-dashboard/internal/middleware"
	"github.com/capitalize-ai/covid-dashboard/internal/render"
	"github.com/capitalize-ai/covid-dashboard/internal/service"
	"github.com/capitalize-ai/covid-dashboard/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))
	fallbackTmpl  = template.Must(template.ParseFS(templateFS, "templates/fallback.html"))
)

// PageHandler serves the dashboard page and its form actions.
type PageHandler struct {
	chat     *service.ChatService
	cases    *service.CaseService
	selector *llm.Selector
	renderer *render.Renderer
	logger   *logger.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(
	chat *service.ChatService,
	cases *service.CaseService,
	selector *llm.Selector,
	renderer *render.Renderer,
	log *logger.Logger,
) *PageHandler {
	return &PageHandler{
		chat:     chat,
		cases:    cases,
		selector: selector,
		renderer: renderer,
		logger:   log,
	}
}

type pageData struct {
	Models         []llm.Option
	Variant        llm.Variant
	Temperature    float64
	Countries      []string
	CountriesError string
	Selected       []string
	SelectedSet    map[string]bool
	ChartURL       string
	Turns          []render.View
	TotalCost      float64
	Error          string
}

// Dashboard handles GET /
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	c, err := parseControls(r, h.cases.DefaultSelection())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.renderPage(w, r, c, http.StatusOK, "")
}

// Submit handles POST /chat
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	c, err := parseControls(r, h.cases.DefaultSelection())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	question := r.PostForm.Get("question")
	if err := middleware.ValidateQuestion(question); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)
	cfg := h.selector.Resolve(c.Variant, c.Temperature)

	if _, err := h.chat.Submit(ctx, sessionID, question, cfg); err != nil {
		status, _ := classify(err)
		h.logger.Error("chat submit failed",
			zap.String("session_id", sessionID),
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		h.renderPage(w, r, c, status, userMessage(err))
		return
	}

	http.Redirect(w, r, "/?"+c.query().Encode(), http.StatusSeeOther)
}

// Clear handles POST /chat/clear
func (h *PageHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, err := parseControls(r, h.cases.DefaultSelection())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := h.chat.Reset(ctx, middleware.GetSessionID(ctx)); err != nil {
		status, _ := classify(err)
		h.logger.Error("chat reset failed", zap.Error(err))
		h.renderPage(w, r, c, status, userMessage(err))
		return
	}

	http.Redirect(w, r, "/?"+c.query().Encode(), http.StatusSeeOther)
}

// Chart handles GET /chart
func (h *PageHandler) Chart(w http.ResponseWriter, r *http.Request) {
	countries := r.URL.Query()["country"]
	if err := middleware.ValidateCountries(countries); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.cases.Chart(r.Context(), countries)
	if err != nil {
		h.logger.Error("failed to build chart", zap.Strings("countries", countries), zap.Error(err))
		http.Error(w, "failed to load case data", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.Fallback != "" {
		fallbackTmpl.Execute(w, res.Fallback)
		return
	}
	w.Write(res.HTML)
}

func (h *PageHandler) renderPage(w http.ResponseWriter, r *http.Request, c controls, status int, errMsg string) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	data := pageData{
		Models:      h.selector.Options(),
		Variant:     c.Variant,
		Temperature: c.Temperature,
		Selected:    c.Countries,
		SelectedSet: make(map[string]bool, len(c.Countries)),
		ChartURL:    c.chartURL(),
		Error:       errMsg,
	}
	for _, country := range c.Countries {
		data.SelectedSet[country] = true
	}

	countries, err := h.cases.Countries(ctx)
	if err != nil {
		h.logger.Error("failed to list countries", zap.Error(err))
		data.CountriesError = "Country list is unavailable right now."
	}
	data.Countries = countries

	turns, err := h.chat.Snapshot(ctx, sessionID)
	if err != nil {
		h.logger.Error("failed to load conversation", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return
	}
	if data.Turns, err = h.renderer.Turns(turns); err != nil {
		h.logger.Error("failed to render conversation", zap.Error(err))
		http.Error(w, "failed to render conversation", http.StatusInternalServerError)
		return
	}
	if _, total, err := h.chat.Usage(ctx, sessionID); err == nil {
		data.TotalCost = total
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, data); err != nil {
		h.logger.Error("failed to execute dashboard template", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
