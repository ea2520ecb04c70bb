package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"todo-webapp/internal/domain"
	"todo-webapp/internal/repository"
	"todo-webapp/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PerPage is the fixed listing page size.
const PerPage = 20

// MaxCoverBytes caps cover uploads at 2MB.
const MaxCoverBytes = 2 << 20

const coverNamespace = "covers"

// CoverUpload is an incoming cover image file. ContentType is the sniffed
// type, not whatever the client claimed.
type CoverUpload struct {
	Filename    string
	Size        int64
	ContentType string
	Content     io.Reader
}

// CreateTodoRequest holds the data needed to create a new todo
type CreateTodoRequest struct {
	Title   string `form:"title" validate:"required,max=255"`
	Note    string `form:"note"`
	Status  string `form:"status" validate:"omitempty,oneof=pending done"`
	DueDate *time.Time
	Cover   *CoverUpload `validate:"-"`
}

// UpdateTodoRequest holds the data for updating an existing todo. Fields the
// form did not submit keep their stored value: a nil Note leaves the note
// alone, and DueDate is applied only when DueDateSet is true (a nil value
// with DueDateSet clears the date).
type UpdateTodoRequest struct {
	Title      string  `form:"title" validate:"required,max=255"`
	Note       *string `form:"note"`
	Status     string  `form:"status" validate:"omitempty,oneof=pending done"`
	DueDate    *time.Time
	DueDateSet bool
	Cover      *CoverUpload `validate:"-"`
}

// TodoResponse is the standard representation of a Todo returned by the service.
type TodoResponse struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Note     string  `json:"note"`
	Status   string  `json:"status"`
	DueDate  *string `json:"due_date"`
	Cover    string  `json:"cover,omitempty"`
	CoverURL *string `json:"cover_url"`
	UserID   uint    `json:"user_id"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ListTodosParams carries the listing filters as received from the client.
// An unrecognized status value is ignored rather than rejected.
type ListTodosParams struct {
	Search string
	Status string
	Page   int
}

// TodoPage is one page of todos with paginator metadata.
type TodoPage struct {
	Data        []TodoResponse `json:"data"`
	CurrentPage int            `json:"current_page"`
	LastPage    int            `json:"last_page"`
	PerPage     int            `json:"per_page"`
	Total       int64          `json:"total"`
	PrevPage    *int           `json:"prev_page"`
	NextPage    *int           `json:"next_page"`
}

// StatsResponse aggregates the owner's entire todo set, regardless of any
// active listing filters. Series/Labels feed the dashboard chart.
type StatsResponse struct {
	Total   int64    `json:"total"`
	Done    int64    `json:"done"`
	Pending int64    `json:"pending"`
	Series  []int64  `json:"series"`
	Labels  []string `json:"labels"`
}

// ListResult is the full listing payload: the page plus the stats.
type ListResult struct {
	Todos TodoPage      `json:"todos"`
	Stats StatsResponse `json:"stats"`
}

// TodoService enforces ownership and coordinates validation, status
// defaults, and the cover image lifecycle.
type TodoService interface {
	// ListTodos returns one page of the owner's todos matching the
	// filters, plus stats over the owner's whole set.
	ListTodos(ctx context.Context, userID uint, params ListTodosParams) (*ListResult, error)

	// GetTodo fetches a single todo for its owner. Returns ErrForbidden
	// when the caller does not own it.
	GetTodo(ctx context.Context, userID, id uint) (*TodoResponse, error)

	// CreateTodo validates and persists a new todo owned by userID,
	// storing the cover blob first when one is supplied.
	CreateTodo(ctx context.Context, userID uint, req CreateTodoRequest) (*TodoResponse, error)

	// UpdateTodo applies field updates to an owned todo. A new cover
	// replaces (and deletes) the previous blob; an omitted cover leaves
	// the stored path untouched.
	UpdateTodo(ctx context.Context, userID, id uint, req UpdateTodoRequest) (*TodoResponse, error)

	// DeleteTodo removes an owned todo and its cover blob.
	DeleteTodo(ctx context.Context, userID, id uint) error
}

type todoService struct {
	repo   repository.TodoRepository
	blobs  storage.Store
	logger logrus.FieldLogger
}

func NewTodoService(repo repository.TodoRepository, blobs storage.Store, logger logrus.FieldLogger) TodoService {
	return &todoService{repo: repo, blobs: blobs, logger: logger}
}

func (s *todoService) ListTodos(ctx context.Context, userID uint, params ListTodosParams) (*ListResult, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}

	// An invalid status filter is ignored, not rejected.
	status := params.Status
	if !domain.ValidStatus(status) {
		status = ""
	}

	todos, total, err := s.repo.List(ctx, repository.ListParams{
		UserID:  userID,
		Search:  strings.TrimSpace(params.Search),
		Status:  status,
		Page:    page,
		PerPage: PerPage,
	})
	if err != nil {
		s.logger.WithError(err).Error("listing todos")
		return nil, fmt.Errorf("listing todos: %w", err)
	}

	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("computing todo stats")
		return nil, fmt.Errorf("computing stats: %w", err)
	}

	lastPage := int((total + PerPage - 1) / PerPage)
	if lastPage < 1 {
		lastPage = 1
	}

	data := make([]TodoResponse, 0, len(todos))
	for i := range todos {
		data = append(data, *s.toResponse(&todos[i]))
	}

	var prevPage, nextPage *int
	if page > 1 {
		p := page - 1
		prevPage = &p
	}
	if page < lastPage {
		n := page + 1
		nextPage = &n
	}

	return &ListResult{
		Todos: TodoPage{
			Data:        data,
			CurrentPage: page,
			LastPage:    lastPage,
			PerPage:     PerPage,
			Total:       total,
			PrevPage:    prevPage,
			NextPage:    nextPage,
		},
		Stats: StatsResponse{
			Total:   stats.Total,
			Done:    stats.Done,
			Pending: stats.Pending,
			Series:  []int64{stats.Done, stats.Pending},
			Labels:  []string{"Done", "Pending"},
		},
	}, nil
}

func (s *todoService) GetTodo(ctx context.Context, userID, id uint) (*TodoResponse, error) {
	todo, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(todo), nil
}

func (s *todoService) CreateTodo(ctx context.Context, userID uint, req CreateTodoRequest) (*TodoResponse, error) {
	req.Title = strings.TrimSpace(req.Title)

	ve := checkStruct(req)
	if msg := checkCover(req.Cover); msg != "" {
		if ve == nil {
			ve = newValidationError()
		}
		ve.Fields["cover"] = msg
	}
	if ve != nil {
		return nil, ve
	}

	status := req.Status
	if status == "" {
		status = domain.StatusPending
	}

	coverPath := ""
	if req.Cover != nil {
		path, err := s.blobs.Save(ctx, coverNamespace, req.Cover.Filename, req.Cover.Content)
		if err != nil {
			s.logger.WithError(err).Error("storing cover blob")
			return nil, fmt.Errorf("storing cover: %w", err)
		}
		coverPath = path
	}

	todo := &domain.Todo{
		UserID:  userID,
		Title:   req.Title,
		Note:    req.Note,
		Status:  status,
		DueDate: req.DueDate,
		Cover:   coverPath,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		// Don't leave an orphaned blob behind a row that never existed.
		if coverPath != "" {
			if derr := s.blobs.Delete(ctx, coverPath); derr != nil {
				s.logger.WithError(derr).WithField("path", coverPath).Warn("cleaning up cover after failed create")
			}
		}
		s.logger.WithError(err).Error("creating todo")
		return nil, fmt.Errorf("creating todo: %w", err)
	}

	return s.toResponse(todo), nil
}

func (s *todoService) UpdateTodo(ctx context.Context, userID, id uint, req UpdateTodoRequest) (*TodoResponse, error) {
	todo, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)

	ve := checkStruct(req)
	if msg := checkCover(req.Cover); msg != "" {
		if ve == nil {
			ve = newValidationError()
		}
		ve.Fields["cover"] = msg
	}
	if ve != nil {
		return nil, ve
	}

	if req.Cover != nil {
		// Replace: the old blob goes away before the new path is recorded.
		if todo.Cover != "" {
			if derr := s.blobs.Delete(ctx, todo.Cover); derr != nil {
				s.logger.WithError(derr).WithField("path", todo.Cover).Warn("deleting replaced cover")
			}
		}
		path, err := s.blobs.Save(ctx, coverNamespace, req.Cover.Filename, req.Cover.Content)
		if err != nil {
			s.logger.WithError(err).Error("storing replacement cover")
			return nil, fmt.Errorf("storing cover: %w", err)
		}
		todo.Cover = path
	}

	todo.Title = req.Title
	if req.Note != nil {
		todo.Note = *req.Note
	}
	if req.DueDateSet {
		todo.DueDate = req.DueDate
	}
	if req.Status != "" {
		todo.Status = req.Status
	}

	if err := s.repo.Update(ctx, todo); err != nil {
		s.logger.WithError(err).Error("updating todo")
		return nil, fmt.Errorf("updating todo: %w", err)
	}

	return s.toResponse(todo), nil
}

func (s *todoService) DeleteTodo(ctx context.Context, userID, id uint) error {
	todo, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}

	// Best effort: a failed blob delete must not strand the record.
	if todo.Cover != "" {
		if derr := s.blobs.Delete(ctx, todo.Cover); derr != nil {
			s.logger.WithError(derr).WithField("path", todo.Cover).Warn("deleting cover blob")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.WithError(err).Error("deleting todo")
		return fmt.Errorf("deleting todo: %w", err)
	}
	return nil
}

// findOwned loads a todo and enforces the ownership gate. Non-owners get
// ErrForbidden, never a silent filter.
func (s *todoService) findOwned(ctx context.Context, userID, id uint) (*domain.Todo, error) {
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.logger.WithError(err).WithField("todo_id", id).Error("fetching todo")
		return nil, fmt.Errorf("fetching todo %d: %w", id, err)
	}
	if todo.UserID != userID {
		return nil, ErrForbidden
	}
	return todo, nil
}

func checkCover(cover *CoverUpload) string {
	if cover == nil {
		return ""
	}
	if cover.Size > MaxCoverBytes {
		return "The cover may not be greater than 2048 kilobytes."
	}
	if !strings.HasPrefix(cover.ContentType, "image/") {
		return "The cover must be an image."
	}
	return ""
}

func (s *todoService) toResponse(todo *domain.Todo) *TodoResponse {
	resp := &TodoResponse{
		ID:        todo.ID,
		Title:     todo.Title,
		Note:      todo.Note,
		Status:    todo.Status,
		Cover:     todo.Cover,
		UserID:    todo.UserID,
		CreatedAt: todo.CreatedAt.Format(time.RFC3339),
		UpdatedAt: todo.UpdatedAt.Format(time.RFC3339),
	}
	if todo.DueDate != nil {
		due := todo.DueDate.Format("2006-01-02")
		resp.DueDate = &due
	}
	if todo.Cover != "" {
		url := s.blobs.URL(todo.Cover)
		resp.CoverURL = &url
	}
	return resp
}
