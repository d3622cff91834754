package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"a11ydash/application"
	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
	"a11ydash/interfaces/web/presenters"
	"a11ydash/logging"
)

// TaskHandlers serves the server-rendered task pages: list, detail,
// create, edit, delete and run. Every page render goes through the
// reconciliation engine so the durable store and the view stay aligned.
type TaskHandlers struct {
	reconcile *application.ReconcileService
	presenter *presenters.TaskPresenter
	logger    *logging.Logger
}

// NewTaskHandlers creates the page handlers.
func NewTaskHandlers(reconcile *application.ReconcileService, presenter *presenters.TaskPresenter) *TaskHandlers {
	return &TaskHandlers{
		reconcile: reconcile,
		presenter: presenter,
		logger:    logging.Default().WithComponent("task_handlers"),
	}
}

type listPageData struct {
	Cards   []presenters.TaskCardView
	Deleted bool
	Alert   string
}

// Home renders the reconciled task list. The "deleted" query parameter is
// the just-completed-deletion marker that lets reconciliation shrink
// durable membership to match the server.
func (h *TaskHandlers) Home(w http.ResponseWriter, r *http.Request) {
	justDeleted := r.URL.Query().Get("deleted") != ""

	view := h.reconcile.ListPage(r.Context(), justDeleted)

	RenderPage(w, "index.html", listPageData{
		Cards:   h.presenter.FormatList(view),
		Deleted: justDeleted,
		Alert:   r.URL.Query().Get("alert"),
	})
}

type detailPageData struct {
	Page  *presenters.DetailPageView
	Alert string
}

// Detail renders the reconciled task detail page. An unknown task renders
// as a placeholder, never an error page.
func (h *TaskHandlers) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")

	view := h.reconcile.DetailPage(r.Context(), id)

	RenderPage(w, "task.html", detailPageData{
		Page:  h.presenter.FormatDetail(view),
		Alert: r.URL.Query().Get("alert"),
	})
}

// NewForm renders an empty create form.
func (h *TaskHandlers) NewForm(w http.ResponseWriter, r *http.Request) {
	RenderPage(w, "task_form.html", newFormView(&accessibility.Task{Standard: accessibility.DefaultStandard}, true, ""))
}

// CreateTask applies a create form submission. Validation failures are
// surfaced back on the form; success redirects to the new task's page.
func (h *TaskHandlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	fields := formFields(r)

	task, err := h.reconcile.CreateTask(r.Context(), fields)
	if err != nil {
		if errors.Is(err, contracts.ErrValidation) {
			entered := &accessibility.Task{}
			entered.ApplyFields(fields)
			w.WriteHeader(http.StatusBadRequest)
			RenderPage(w, "task_form.html", newFormView(entered, true, err.Error()))
			return
		}
		h.logger.Error("Failed to create task", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/"+task.ID, http.StatusSeeOther)
}

// EditForm pre-populates the edit form from the durable record when one
// exists, falling back to the server record, then to a placeholder.
func (h *TaskHandlers) EditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")

	task := h.reconcile.EditPrefill(r.Context(), id)
	if task == nil {
		task = &accessibility.Task{ID: id, Standard: accessibility.DefaultStandard}
	}

	RenderPage(w, "task_form.html", newFormView(task, false, ""))
}

// ApplyEdit writes the submitted fields durably before the server-side
// edit proceeds, so an edit survives even if the ephemeral store has
// forgotten the task.
func (h *TaskHandlers) ApplyEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	fields := formFields(r)

	if _, err := h.reconcile.ApplyEdit(r.Context(), id, fields); err != nil {
		h.logger.Error("Failed to apply edit", "task_id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/"+id, http.StatusSeeOther)
}

type deletePageData struct {
	ID       string
	Name     string
	URL      string
	Standard string
}

// DeleteForm renders the delete confirmation, patching display fields
// from the durable record when the server only has placeholders.
func (h *TaskHandlers) DeleteForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")

	data := deletePageData{ID: id}
	if task := h.reconcile.DeletePrefill(r.Context(), id); task != nil {
		data.Name = task.Name
		data.URL = task.URL
		data.Standard = string(task.Standard)
	}

	RenderPage(w, "task_delete.html", data)
}

// ExecuteDelete removes the task from the server store and always
// redirects with the just-deleted marker, found or not; the list-page
// reconciliation performs the durable cascade.
func (h *TaskHandlers) ExecuteDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")

	h.reconcile.DeleteTask(id)

	http.Redirect(w, r, "/?deleted=1", http.StatusSeeOther)
}

// RunTask triggers one audit run and redirects back to the detail page so
// it re-renders against fresh durable state. Engine failures surface as
// an alert without touching any stored record.
func (h *TaskHandlers) RunTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")

	_, err := h.reconcile.RunTask(r.Context(), id)
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		http.Redirect(w, r, "/"+id+"?alert="+url.QueryEscape("Task is unknown; edit it to restore its details before running."), http.StatusSeeOther)
	case err != nil:
		h.logger.Error("Run failed", "task_id", id, "error", err)
		http.Redirect(w, r, "/"+id+"?alert="+url.QueryEscape("The audit run failed: "+err.Error()), http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/"+id, http.StatusSeeOther)
	}
}

// formView is the template model for the create/edit form.
type formView struct {
	IsNew bool
	Error string

	ID           string
	Name         string
	URL          string
	Standard     string
	Standards    []string
	IgnoreText   string
	Timeout      string
	Wait         string
	ActionsText  string
	Username     string
	Password     string
	HeadersText  string
	HideElements string
}

func newFormView(task *accessibility.Task, isNew bool, errMsg string) formView {
	standards := make([]string, 0, len(accessibility.Standards))
	for _, s := range accessibility.Standards {
		standards = append(standards, string(s))
	}

	view := formView{
		IsNew:        isNew,
		Error:        errMsg,
		ID:           task.ID,
		Name:         task.Name,
		URL:          task.URL,
		Standard:     string(task.Standard),
		Standards:    standards,
		IgnoreText:   strings.Join(task.Ignore, "\n"),
		ActionsText:  strings.Join(task.Actions, "\n"),
		Username:     task.Username,
		Password:     task.Password,
		HideElements: task.HideElements,
	}
	if task.Timeout > 0 {
		view.Timeout = strconv.FormatInt(task.Timeout, 10)
	}
	if task.Wait > 0 {
		view.Wait = strconv.FormatInt(task.Wait, 10)
	}

	var headerLines []string
	for name, value := range task.Headers {
		headerLines = append(headerLines, name+": "+value)
	}
	view.HeadersText = strings.Join(headerLines, "\n")

	return view
}

// formFields converts a page form submission into the whitelisted field
// map the stores merge from. Only fields present in the form appear in
// the map, so absent fields are left untouched by edits.
func formFields(r *http.Request) map[string]any {
	if err := r.ParseForm(); err != nil {
		return map[string]any{}
	}

	fields := make(map[string]any)
	for _, key := range []string{"name", "url", "standard", "timeout", "wait", "username", "password", "hideElements"} {
		if r.Form.Has(key) {
			fields[key] = strings.TrimSpace(r.Form.Get(key))
		}
	}
	if r.Form.Has("ignore") {
		fields["ignore"] = splitLines(r.Form.Get("ignore"))
	}
	if r.Form.Has("actions") {
		fields["actions"] = splitLines(r.Form.Get("actions"))
	}
	if r.Form.Has("headers") {
		fields["headers"] = parseHeaderLines(r.Form.Get("headers"))
	}
	return fields
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if lines == nil {
		return []string{}
	}
	return lines
}

func parseHeaderLines(text string) map[string]string {
	headers := make(map[string]string)
	for _, line := range splitLines(text) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers
}
