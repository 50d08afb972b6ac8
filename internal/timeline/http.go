package timeline

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"timetable-service/internal/auth"
	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the timeline API. createLimit, if set, wraps only the create endpoint.
func (h *Handler) Routes(r chi.Router, createLimit func(http.Handler) http.Handler) {
	create := http.Handler(http.HandlerFunc(h.handleCreate))
	if createLimit != nil {
		create = createLimit(create)
	}

	r.Get("/api/timelines", h.handleList)
	r.Method(http.MethodPost, "/api/timelines", create)
	r.Get("/api/timelines/{id}", h.handleGet)
	r.Delete("/api/timelines/{id}", h.handleDelete)
	r.Patch("/api/timelines/{id}/public", h.handleTogglePublic)
	r.Post("/api/admin/fix-profiles", h.handleFixProfiles)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var g genre.Genre
	if raw := r.URL.Query().Get("genre"); raw != "" {
		parsed, ok := genre.Parse(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid genre")
			return
		}
		g = parsed
	}

	list, err := h.svc.ListForUser(r.Context(), auth.UserFromContext(r.Context()), g)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	detail, err := h.svc.CreateTimelineRecord(r.Context(), auth.UserFromContext(r.Context()), in)
	var partial *PartialSaveError
	if errors.As(err, &partial) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"data":  detail,
			"error": partial.Error(),
		})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requireAuth := r.URL.Query().Get("requireAuth") == "true"
	detail, err := h.svc.Get(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"), requireAuth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleTogglePublic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsPublic *bool `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsPublic == nil {
		writeError(w, http.StatusBadRequest, "isPublic is required")
		return
	}

	t, err := h.svc.TogglePublic(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"), *body.IsPublic)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleFixProfiles(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.FixMissingProfiles(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": n})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, metadata.ErrMissingGenre):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProfile), errors.Is(err, ErrCreate):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "database error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
