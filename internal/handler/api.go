package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/covid-dashboard/internal/llm"
	"github.com/capitalize-ai/covid-dashboard/internal/middleware"
	"github.com/capitalize-ai/covid-dashboard/internal/model"
	"github.com/capitalize-ai/covid-dashboard/internal/service"
	"github.com/capitalize-ai/covid-dashboard/pkg/logger"
)

// APIHandler serves the JSON API.
type APIHandler struct {
	chat     *service.ChatService
	cases    *service.CaseService
	selector *llm.Selector
	logger   *logger.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	chat *service.ChatService,
	cases *service.CaseService,
	selector *llm.Selector,
	log *logger.Logger,
) *APIHandler {
	return &APIHandler{
		chat:     chat,
		cases:    cases,
		selector: selector,
		logger:   log,
	}
}

// Countries handles GET /api/v1/countries
func (h *APIHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.cases.Countries(r.Context())
	if err != nil {
		h.logger.Error("failed to list countries", zap.Error(err))
		writeError(w, http.StatusBadGateway, "warehouse_unavailable", "failed to list countries")
		return
	}
	if countries == nil {
		countries = []string{}
	}
	writeJSON(w, http.StatusOK, model.CountriesResponse{Countries: countries})
}

// Cases handles GET /api/v1/cases
func (h *APIHandler) Cases(w http.ResponseWriter, r *http.Request) {
	countries := r.URL.Query()["country"]
	if err := middleware.ValidateCountries(countries); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_countries", err.Error())
		return
	}

	rows, err := h.cases.Series(r.Context(), countries)
	if err != nil {
		h.logger.Error("failed to query cases", zap.Strings("countries", countries), zap.Error(err))
		writeError(w, http.StatusBadGateway, "warehouse_unavailable", "failed to query cases")
		return
	}
	if rows == nil {
		rows = []model.CaseSeriesRow{}
	}
	if countries == nil {
		countries = []string{}
	}
	writeJSON(w, http.StatusOK, model.CasesResponse{Countries: countries, Rows: rows})
}

// Models handles GET /api/v1/models
func (h *APIHandler) Models(w http.ResponseWriter, r *http.Request) {
	opts := h.selector.Options()
	out := make([]model.ModelOption, len(opts))
	for i, o := range opts {
		out[i] = model.ModelOption{Variant: string(o.Variant), Label: o.Label, Model: o.Model}
	}
	writeJSON(w, http.StatusOK, out)
}

// Turns handles GET /api/v1/chat/turns
func (h *APIHandler) Turns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	turns, err := h.chat.Snapshot(ctx, sessionID)
	if err != nil {
		h.fail(w, r, "failed to load conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, model.TurnsResponse{SessionID: sessionID, Turns: turns})
}

// Submit handles POST /api/v1/chat/turns
func (h *APIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	var req model.SubmitTurnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if err := middleware.ValidateQuestion(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_content", err.Error())
		return
	}
	variant, err := llm.ParseVariant(req.Model)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_model", err.Error())
		return
	}
	temperature, err := llm.CheckTemperature(req.Temperature)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_temperature", err.Error())
		return
	}

	res, err := h.chat.Submit(ctx, sessionID, req.Content, h.selector.Resolve(variant, temperature))
	if err != nil {
		h.fail(w, r, "chat submit failed", err)
		return
	}

	writeJSON(w, http.StatusOK, model.TurnsResponse{
		SessionID: sessionID,
		Turns:     res.Turns,
		Submitted: res.Submitted,
	})
}

// Reset handles DELETE /api/v1/chat/turns
func (h *APIHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	turns, err := h.chat.Reset(ctx, sessionID)
	if err != nil {
		h.fail(w, r, "chat reset failed", err)
		return
	}
	writeJSON(w, http.StatusOK, model.TurnsResponse{SessionID: sessionID, Turns: turns})
}

// Usage handles GET /api/v1/chat/usage
func (h *APIHandler) Usage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	records, total, err := h.chat.Usage(ctx, sessionID)
	if err != nil {
		h.fail(w, r, "failed to load usage", err)
		return
	}
	writeJSON(w, http.StatusOK, model.UsageResponse{
		SessionID: sessionID,
		Records:   records,
		TotalCost: total,
	})
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, code := classify(err)
	h.logger.Error(msg,
		zap.String("session_id", middleware.GetSessionID(r.Context())),
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, code, userMessage(err))
}
