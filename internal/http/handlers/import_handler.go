package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"evtracker/internal/charging"
	"evtracker/internal/models"
)

// ImportRunner runs the Octopus import pipelines.
type ImportRunner interface {
	ImportConsumption(ctx context.Context, from, to time.Time) (models.ImportSummary, error)
	ImportDispatches(ctx context.Context, from, to time.Time) (models.ImportSummary, error)
}

// DispatchFetcher reads completed dispatches without persisting anything.
type DispatchFetcher interface {
	CompletedDispatches(ctx context.Context, from, to time.Time) ([]charging.RawRecord, error)
	Authenticate(ctx context.Context) (string, error)
}

// SummaryReader exposes the result of the most recent import run.
type SummaryReader interface {
	LastImport(ctx context.Context) (*models.ImportSummary, error)
}

// ImportHandler drives imports over HTTP.
type ImportHandler struct {
	runner    ImportRunner
	dispatch  DispatchFetcher
	summaries SummaryReader
	lookback  time.Duration
	logger    *zap.Logger
}

// NewImportHandler builds the import handler set.
func NewImportHandler(runner ImportRunner, dispatch DispatchFetcher, summaries SummaryReader, lookbackDays int, logger *zap.Logger) *ImportHandler {
	if lookbackDays <= 0 {
		lookbackDays = 3
	}
	return &ImportHandler{
		runner:    runner,
		dispatch:  dispatch,
		summaries: summaries,
		lookback:  time.Duration(lookbackDays) * 24 * time.Hour,
		logger:    logger,
	}
}

// HandleImportConsumption handles POST /api/octopus/import.
func (h *ImportHandler) HandleImportConsumption(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r.URL.Query().Get("dateFrom"), r.URL.Query().Get("dateTo"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if from.IsZero() {
		to = time.Now().UTC()
		from = to.Add(-h.lookback)
	}

	summary, err := h.runner.ImportConsumption(r.Context(), from, to)
	if err != nil {
		h.logger.Error("consumption import failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "import failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleImportDispatches handles POST /api/import/dispatches.
func (h *ImportHandler) HandleImportDispatches(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r.URL.Query().Get("dateFrom"), r.URL.Query().Get("dateTo"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if from.IsZero() {
		to = time.Now().UTC()
		from = to.Add(-h.lookback)
	}

	summary, err := h.runner.ImportDispatches(r.Context(), from, to)
	if err != nil {
		h.logger.Error("dispatch import failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "import failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleCompletedDispatches handles GET /api/octopus/completed-dispatches.
// Returns the raw dispatch records without touching the database.
func (h *ImportHandler) HandleCompletedDispatches(w http.ResponseWriter, r *http.Request) {
	if h.dispatch == nil {
		writeError(w, http.StatusServiceUnavailable, "octopus graphql client not configured")
		return
	}
	from, to, err := parseDateRange(r.URL.Query().Get("dateFrom"), r.URL.Query().Get("dateTo"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if from.IsZero() {
		to = time.Now().UTC()
		from = to.Add(-h.lookback)
	}

	records, err := h.dispatch.CompletedDispatches(r.Context(), from, to)
	if err != nil {
		h.logger.Error("dispatch fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "fetch failed: "+err.Error())
		return
	}
	if records == nil {
		records = []charging.RawRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(records), "dispatches": records})
}

// HandleGraphQLAuth handles POST /api/octopus/graphql/auth.
// Forces a fresh Kraken token and caches it.
func (h *ImportHandler) HandleGraphQLAuth(w http.ResponseWriter, r *http.Request) {
	if h.dispatch == nil {
		writeError(w, http.StatusServiceUnavailable, "octopus graphql client not configured")
		return
	}
	if _, err := h.dispatch.Authenticate(r.Context()); err != nil {
		h.logger.Error("graphql auth failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "authentication failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Authenticated with Octopus GraphQL"})
}

// HandleLastImport handles GET /api/import/last.
func (h *ImportHandler) HandleLastImport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summaries.LastImport(r.Context())
	if err != nil {
		h.logger.Error("last import lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read last import")
		return
	}
	if summary == nil {
		writeJSON(w, http.StatusOK, map[string]any{"lastImport": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lastImport": summary})
}
