package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"evtracker/internal/models"
	"evtracker/internal/repository"
)

// SessionStore is the storage surface the CRUD handlers need.
type SessionStore interface {
	GetAll(ctx context.Context) ([]models.ChargingSession, error)
	GetByID(ctx context.Context, id string) (*models.ChargingSession, error)
	Insert(ctx context.Context, s *models.ChargingSession) error
	Update(ctx context.Context, s *models.ChargingSession) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (models.Stats, error)
}

// SessionsHandler exposes CRUD over manually entered and imported sessions.
type SessionsHandler struct {
	store  SessionStore
	logger *zap.Logger
}

// NewSessionsHandler builds handler set.
func NewSessionsHandler(store SessionStore, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{store: store, logger: logger}
}

type sessionRequest struct {
	Date        string   `json:"date"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	EnergyAdded float64  `json:"energyAdded"`
	StartSoC    *float64 `json:"startSoC"`
	EndSoC      *float64 `json:"endSoC"`
	TariffRate  float64  `json:"tariffRate"`
	Cost        float64  `json:"cost"`
	Notes       string   `json:"notes"`
	Source      string   `json:"source"`
	Vehicle     *string  `json:"vehicle"`
}

// HandleList handles GET /api/sessions.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.GetAll(r.Context())
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read sessions")
		return
	}
	if sessions == nil {
		sessions = []models.ChargingSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// HandleGet handles GET /api/sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("get session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleCreate handles POST /api/sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Date == "" || req.StartTime == "" {
		writeError(w, http.StatusBadRequest, "date and startTime are required")
		return
	}
	if req.Source == "" {
		req.Source = models.SourceManual
	}

	session := req.toModel()
	session.ID = models.NewSessionID()

	if err := h.store.Insert(r.Context(), session); err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// HandleUpdate handles PUT /api/sessions/{id}.
func (h *SessionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("load session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update session")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	session := req.toModel()
	session.ID = id
	if existing.Imported() {
		session.OctopusSessionID = existing.OctopusSessionID
		session.DispatchCount = existing.DispatchCount
		session.DispatchBlocks = existing.DispatchBlocks
	}
	if session.Source == "" {
		session.Source = existing.Source
	}

	if err := h.store.Update(r.Context(), session); err != nil {
		h.logger.Error("update session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleDelete handles DELETE /api/sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("delete session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

// HandleStats handles GET /api/stats.
func (h *SessionsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to calculate stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (r sessionRequest) toModel() *models.ChargingSession {
	return &models.ChargingSession{
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		EnergyAdded: r.EnergyAdded,
		StartSoC:    r.StartSoC,
		EndSoC:      r.EndSoC,
		TariffRate:  r.TariffRate,
		Cost:        r.Cost,
		Notes:       r.Notes,
		Source:      r.Source,
		Vehicle:     r.Vehicle,
	}
}
