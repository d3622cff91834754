package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"a11ydash/application"
	"a11ydash/domain/contracts"
	"a11ydash/interfaces/web/presenters"
	"a11ydash/logging"
)

// maxImportBytes bounds import documents to keep a bad upload from
// exhausting memory.
const maxImportBytes = 32 << 20

// APIHandlers serves the JSON surface: ad-hoc runs, the structured task
// list payload, and export/import of the durable store.
type APIHandlers struct {
	engine    contracts.AuditEngine
	reconcile *application.ReconcileService
	export    *application.ExportService
	presenter *presenters.TaskPresenter
	logger    *logging.Logger
}

// NewAPIHandlers creates the JSON API handlers.
func NewAPIHandlers(
	engine contracts.AuditEngine,
	reconcile *application.ReconcileService,
	export *application.ExportService,
	presenter *presenters.TaskPresenter,
) *APIHandlers {
	return &APIHandlers{
		engine:    engine,
		reconcile: reconcile,
		export:    export,
		presenter: presenter,
		logger:    logging.Default().WithComponent("api_handlers"),
	}
}

type runPayload struct {
	URL string `json:"url"`
	contracts.EngineOptions
}

// RunAudit performs one ad-hoc engine invocation against an arbitrary
// URL without touching either store. The raw engine result is returned
// as JSON; engine failures propagate as a 500.
func (h *APIHandlers) RunAudit(w http.ResponseWriter, r *http.Request) {
	var payload runPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.URL == "" {
		WriteJSONError(w, http.StatusBadRequest, "Missing url")
		return
	}

	result, err := h.engine.Run(r.Context(), payload.URL, &payload.EngineOptions)
	if err != nil {
		h.logger.Error("Ad-hoc run failed", "url", payload.URL, "error", err)
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// ListTasks returns the reconciled task list as a structured payload,
// the machine-readable counterpart of the list page.
func (h *APIHandlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	view := h.reconcile.ListPage(r.Context(), false)
	WriteJSON(w, http.StatusOK, map[string]any{
		"tasks": h.presenter.FormatList(view),
	})
}

// Export serves the durable store as a downloadable document.
func (h *APIHandlers) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.export.ExportJSON(r.Context())
	if err != nil {
		h.logger.Error("Export failed", "error", err)
		WriteJSONError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="a11ydash-export.json"`)
	w.Write(data)
}

// Import restores an export document into the durable store. A malformed
// document aborts the whole import; per-record failures do not.
func (h *APIHandlers) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	imported, err := h.export.Import(r.Context(), data)
	if err != nil {
		if errors.Is(err, contracts.ErrSerialization) {
			WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Import failed", "error", err)
		WriteJSONError(w, http.StatusInternalServerError, "Import failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{"imported": imported})
}
