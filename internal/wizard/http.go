package wizard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/field"
	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
	"timetable-service/internal/timeline"
)

type Handler struct {
	drafts  DraftStore
	saver   *Saver
	catalog *genre.Catalog
	logger  *zap.Logger
}

func NewHandler(drafts DraftStore, saver *Saver, logger *zap.Logger) *Handler {
	return &Handler{
		drafts:  drafts,
		saver:   saver,
		catalog: genre.Default(),
		logger:  logger.Named("wizard"),
	}
}

// Routes mounts the wizard API. saveLimit, if set, wraps only the save
// endpoint, which creates timelines.
func (h *Handler) Routes(r chi.Router, saveLimit func(http.Handler) http.Handler) {
	save := http.Handler(http.HandlerFunc(h.handleSave))
	if saveLimit != nil {
		save = saveLimit(save)
	}

	r.Get("/api/genres", h.handleGenres)

	r.Route("/api/wizard", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Delete("/", h.handleDiscard)

			r.Post("/genre", h.handleGenre)
			r.Post("/basic-info", h.handleBasicInfo)
			r.Post("/back", h.step(Draft.PreviousStep))
			r.Post("/next", h.step(Draft.NextStep))
			r.Post("/reset", h.step(Draft.Reset))
			r.Post("/step", h.handleGoToStep)

			r.Post("/fields", h.handleAddField)
			r.Post("/fields/presets", h.handleAddPresets)
			r.Patch("/fields/{fieldId}", h.handleUpdateField)
			r.Delete("/fields/{fieldId}", h.handleRemoveField)
			r.Post("/fields/{fieldId}/move", h.handleMoveField)
			r.Post("/fields/{fieldId}/status", h.handleToggleField)

			r.Post("/events", h.handleAddEvent)
			r.Patch("/events/{eventId}", h.handleUpdateEvent)
			r.Delete("/events/{eventId}", h.handleRemoveEvent)
			r.Post("/events/{eventId}/move", h.handleMoveEvent)
			r.Post("/events/{eventId}/fields", h.handleAddEventField)
			r.Patch("/events/{eventId}/fields/{fieldId}", h.handleUpdateEventField)
			r.Delete("/events/{eventId}/fields/{fieldId}", h.handleRemoveEventField)

			r.Post("/items", h.handleAddItem)
			r.Patch("/items/{itemId}", h.handleUpdateItem)
			r.Delete("/items/{itemId}", h.handleRemoveItem)

			r.Method(http.MethodPost, "/save", save)
		})
	})
}

func (h *Handler) handleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Entries())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Put(r.Context(), New())
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// mutate loads the draft named in the URL, applies fn and stores the result.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(Draft) (Draft, error)) {
	d, err := h.drafts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	next, err := fn(d)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	if next, err = h.drafts.Put(r.Context(), next); err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (h *Handler) step(fn func(Draft) Draft) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mutate(w, r, func(d Draft) (Draft, error) { return fn(d), nil })
	}
}

func (h *Handler) handleGenre(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Genre string `json:"genre"`
	}
	if !decode(w, r, &body) {
		return
	}
	g, ok := genre.Parse(body.Genre)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrNoGenre.Error())
		return
	}
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.SelectGenre(g), nil })
}

func (h *Handler) handleBasicInfo(w http.ResponseWriter, r *http.Request) {
	var info metadata.BasicInfo
	if !decode(w, r, &info) {
		return
	}

	h.mutate(w, r, func(d Draft) (Draft, error) {
		next, errs := d.SubmitBasicInfo(info)
		if len(errs) > 0 {
			return d, errs
		}
		return next, nil
	})
}

func (h *Handler) handleGoToStep(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Step Step `json:"step"`
	}
	if !decode(w, r, &body) {
		return
	}
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.GoToStep(body.Step), nil })
}

func (h *Handler) handleAddField(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type string `json:"type"`
	}
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}
	t := field.TypeText
	if body.Type != "" {
		parsed, ok := field.ParseType(body.Type)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid field type")
			return
		}
		t = parsed
	}
	h.mutate(w, r, func(d Draft) (Draft, error) {
		next, _ := d.AddField(t)
		return next, nil
	})
}

func (h *Handler) handleAddPresets(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(d Draft) (Draft, error) {
		if d.Genre == "" {
			return d, ErrNoGenre
		}
		next, _ := d.AddPresets()
		return next, nil
	})
}

func (h *Handler) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var p field.Patch
	if !decode(w, r, &p) {
		return
	}
	if p.Type != nil {
		if _, ok := field.ParseType(string(*p.Type)); !ok {
			writeError(w, http.StatusBadRequest, "invalid field type")
			return
		}
	}
	id := chi.URLParam(r, "fieldId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.UpdateField(id, p) })
}

func (h *Handler) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fieldId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.RemoveField(id), nil })
}

type moveBody struct {
	To string `json:"to"`
}

func (h *Handler) handleMoveField(w http.ResponseWriter, r *http.Request) {
	var body moveBody
	if !decode(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "fieldId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.MoveField(id, body.To), nil })
}

func (h *Handler) handleToggleField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fieldId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.ToggleFieldStatus(id) })
}

func (h *Handler) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var in timeline.EventInput
	if !decode(w, r, &in) {
		return
	}
	h.mutate(w, r, func(d Draft) (Draft, error) {
		next, _, err := d.AddEvent(in)
		return next, err
	})
}

func (h *Handler) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var p EventPatch
	if !decode(w, r, &p) {
		return
	}
	id := chi.URLParam(r, "eventId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.UpdateEvent(id, p) })
}

func (h *Handler) handleRemoveEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.RemoveEvent(id), nil })
}

func (h *Handler) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	var body moveBody
	if !decode(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "eventId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.MoveEvent(id, body.To), nil })
}

func (h *Handler) handleAddEventField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventId")
	h.mutate(w, r, func(d Draft) (Draft, error) {
		next, _, err := d.AddEventField(id)
		return next, err
	})
}

func (h *Handler) handleUpdateEventField(w http.ResponseWriter, r *http.Request) {
	var p field.EventPatch
	if !decode(w, r, &p) {
		return
	}
	if p.Type != nil {
		if _, ok := field.ParseEventType(string(*p.Type)); !ok {
			writeError(w, http.StatusBadRequest, "invalid field type")
			return
		}
	}
	eventID, fieldID := chi.URLParam(r, "eventId"), chi.URLParam(r, "fieldId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.UpdateEventField(eventID, fieldID, p) })
}

func (h *Handler) handleRemoveEventField(w http.ResponseWriter, r *http.Request) {
	eventID, fieldID := chi.URLParam(r, "eventId"), chi.URLParam(r, "fieldId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.RemoveEventField(eventID, fieldID), nil })
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var in timeline.ItemInput
	if !decode(w, r, &in) {
		return
	}
	h.mutate(w, r, func(d Draft) (Draft, error) {
		next, _, err := d.AddItem(in)
		return next, err
	})
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var p ItemPatch
	if !decode(w, r, &p) {
		return
	}
	id := chi.URLParam(r, "itemId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.UpdateItem(id, p) })
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemId")
	h.mutate(w, r, func(d Draft) (Draft, error) { return d.RemoveItem(id), nil })
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDraftError(w, err)
		return
	}

	detail, err := h.saver.Save(r.Context(), auth.UserFromContext(r.Context()), d)
	var partial *timeline.PartialSaveError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, detail)
	case errors.Is(err, ErrNoEvents), errors.Is(err, ErrIncomplete):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSaveInProgress), errors.Is(err, ErrDraftNotFound):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, timeline.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, saveFailed(err))
	case errors.As(err, &partial):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"data":  detail,
			"error": saveFailed(err),
		})
	default:
		writeError(w, http.StatusInternalServerError, saveFailed(err))
	}
}

func saveFailed(err error) string {
	return "保存に失敗しました: " + err.Error()
}

func (h *Handler) writeDraftError(w http.ResponseWriter, err error) {
	var invalid ValidationErrors
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "入力内容を確認してください",
			"fields": invalid,
		})
	case errors.Is(err, ErrDraftNotFound), errors.Is(err, ErrUnknownEntry):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, ErrInvalidItem),
		errors.Is(err, ErrQuantity), errors.Is(err, ErrNoGenre):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, field.ErrDuplicateID), errors.Is(err, field.ErrMissingID):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("draft store", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "draft store error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
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
