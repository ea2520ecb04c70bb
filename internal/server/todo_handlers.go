package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"todo-webapp/internal/service"
)

// maxFormBytes caps the whole request body: the 2MB cover plus headroom
// for the other form fields.
const maxFormBytes = service.MaxCoverBytes + 512*1024

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	params := service.ListTodosParams{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Page:   page,
	}

	result, err := s.todoService.ListTodos(r.Context(), currentUserID(r), params)
	if err != nil {
		s.logger.WithError(err).Error("listing todos")
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve todos")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"todos": result.Todos,
		"filters": map[string]string{
			"search": params.Search,
			"status": params.Status,
		},
		"stats": result.Stats,
		"flash": popFlash(w, r),
	})
}

func (s *Server) createFormHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"todo": nil,
	})
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	form, cover, ok := s.parseTodoForm(w, r)
	if !ok {
		return
	}
	if cover != nil {
		defer cover.file.Close()
	}

	req := service.CreateTodoRequest{
		Title:   form.title,
		Status:  form.status,
		DueDate: form.dueDate,
	}
	if form.note != nil {
		req.Note = *form.note
	}
	if cover != nil {
		req.Cover = cover.upload
	}

	_, err := s.todoService.CreateTodo(r.Context(), currentUserID(r), req)
	if err != nil {
		s.respondTodoError(w, err, form, "Failed to create todo")
		return
	}

	setFlash(w, "Todo created.")
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (s *Server) editFormHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoIDParam(w, r)
	if !ok {
		return
	}

	todo, err := s.todoService.GetTodo(r.Context(), currentUserID(r), id)
	if err != nil {
		s.respondTodoError(w, err, nil, "Failed to retrieve todo")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"todo": todo,
	})
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoIDParam(w, r)
	if !ok {
		return
	}

	// Ownership is settled before the submitted fields are even looked at,
	// so a non-owner sees 403 rather than a validation response.
	if _, err := s.todoService.GetTodo(r.Context(), currentUserID(r), id); err != nil {
		s.respondTodoError(w, err, nil, "Failed to update todo")
		return
	}

	form, cover, ok := s.parseTodoForm(w, r)
	if !ok {
		return
	}
	if cover != nil {
		defer cover.file.Close()
	}

	req := service.UpdateTodoRequest{
		Title:      form.title,
		Note:       form.note,
		Status:     form.status,
		DueDate:    form.dueDate,
		DueDateSet: form.dueSet,
	}
	if cover != nil {
		req.Cover = cover.upload
	}

	_, err := s.todoService.UpdateTodo(r.Context(), currentUserID(r), id, req)
	if err != nil {
		s.respondTodoError(w, err, form, "Failed to update todo")
		return
	}

	setFlash(w, "Todo updated.")
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoIDParam(w, r)
	if !ok {
		return
	}

	if err := s.todoService.DeleteTodo(r.Context(), currentUserID(r), id); err != nil {
		s.respondTodoError(w, err, nil, "Failed to delete todo")
		return
	}

	setFlash(w, "Todo deleted.")
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

// --- helpers ---

type todoForm struct {
	title   string
	note    *string
	status  string
	dueSet  bool
	dueDate *time.Time
	rawDue  string
}

type coverFile struct {
	file   io.Closer
	upload *service.CoverUpload
}

// parseTodoForm reads the create/update form, which may arrive either
// urlencoded or as multipart when a cover file is attached. On failure it
// has already written the response and returns ok=false.
func (s *Server) parseTodoForm(w http.ResponseWriter, r *http.Request) (*todoForm, *coverFile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var err error
	isMultipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	if isMultipart {
		err = r.ParseMultipartForm(maxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			if isMultipart {
				// An attached cover is the only thing that pushes the form
				// over the cap, so report it as the cover size rule.
				respondWithValidationErrors(w, map[string]string{
					"cover": "The cover may not be greater than 2048 kilobytes.",
				}, map[string]string{})
			} else {
				respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			}
		} else {
			respondWithError(w, http.StatusBadRequest, "Invalid form data")
		}
		return nil, nil, false
	}

	form := &todoForm{
		title:  formValue(r, "title"),
		status: formValue(r, "status"),
	}
	if vals, ok := r.Form["note"]; ok && len(vals) > 0 {
		form.note = &vals[0]
	}
	if vals, ok := r.Form["due_date"]; ok && len(vals) > 0 {
		form.dueSet = true
		form.rawDue = strings.TrimSpace(vals[0])
	}

	if form.rawDue != "" {
		due, err := time.Parse("2006-01-02", form.rawDue)
		if err != nil {
			respondWithValidationErrors(w, map[string]string{
				"due_date": "The due date is not a valid date.",
			}, form.old())
			return nil, nil, false
		}
		form.dueDate = &due
	}

	if !isMultipart {
		return form, nil, true
	}

	file, header, err := r.FormFile("cover")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil, true
	}
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid cover upload")
		return nil, nil, false
	}

	// Sniff the real content type instead of trusting the client header.
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	head = head[:n]

	cover := &coverFile{
		file: file,
		upload: &service.CoverUpload{
			Filename:    header.Filename,
			Size:        header.Size,
			ContentType: http.DetectContentType(head),
			Content:     io.MultiReader(bytes.NewReader(head), file),
		},
	}
	return form, cover, true
}

func (f *todoForm) old() map[string]string {
	old := map[string]string{
		"title":    f.title,
		"status":   f.status,
		"due_date": f.rawDue,
	}
	if f.note != nil {
		old["note"] = *f.note
	} else {
		old["note"] = ""
	}
	return old
}

func todoIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid todo ID provided")
		return 0, false
	}
	return uint(id), true
}

// respondTodoError maps service errors onto the response contract: 422
// with field messages, 403 on ownership violations, 404 for unknown ids.
func (s *Server) respondTodoError(w http.ResponseWriter, err error, form *todoForm, fallback string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		old := map[string]string{}
		if form != nil {
			old = form.old()
		}
		respondWithValidationErrors(w, ve.Fields, old)
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "You do not have access to this todo")
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Todo not found")
	default:
		s.logger.WithError(err).Error(fallback)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}
