package repository

import (
	"context"

	"todo-webapp/internal/domain"

	"gorm.io/gorm"
)

// ListParams narrows and pages a per-owner todo listing.
type ListParams struct {
	UserID uint
	// Search matches title OR note as a case-insensitive substring.
	Search string
	// Status restricts to one state; empty means all.
	Status string
	// Page is 1-based.
	Page    int
	PerPage int
}

// Stats are aggregate counts over an owner's entire todo set.
type Stats struct {
	Total   int64
	Done    int64
	Pending int64
}

// TodoRepository defines the interface for todo data operations
type TodoRepository interface {
	Create(ctx context.Context, todo *domain.Todo) error
	FindByID(ctx context.Context, id uint) (*domain.Todo, error)
	List(ctx context.Context, params ListParams) ([]domain.Todo, int64, error)
	Stats(ctx context.Context, userID uint) (Stats, error)
	Update(ctx context.Context, todo *domain.Todo) error
	Delete(ctx context.Context, id uint) error
}

// gormTodoRepository implements TodoRepository using GORM
type gormTodoRepository struct {
	db *gorm.DB
}

// NewGormTodoRepository creates a new GORM todo repository
func NewGormTodoRepository(db *gorm.DB) TodoRepository {
	return &gormTodoRepository{db: db}
}

func (r *gormTodoRepository) Create(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

func (r *gormTodoRepository) FindByID(ctx context.Context, id uint) (*domain.Todo, error) {
	var todo domain.Todo
	result := r.db.WithContext(ctx).First(&todo, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &todo, nil
}

// List returns one page of the owner's todos plus the total count matching
// the same filters. Rows are ordered by due date ascending with undated
// todos last; id breaks ties so pages stay stable.
func (r *gormTodoRepository) List(ctx context.Context, params ListParams) ([]domain.Todo, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Todo{}).Where("user_id = ?", params.UserID)

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("title ILIKE ? OR note ILIKE ?", like, like)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var todos []domain.Todo
	offset := (params.Page - 1) * params.PerPage
	err := query.Session(&gorm.Session{}).
		Order("due_date ASC NULLS LAST").
		Order("id ASC").
		Limit(params.PerPage).
		Offset(offset).
		Find(&todos).Error
	if err != nil {
		return nil, 0, err
	}

	return todos, total, nil
}

// Stats counts over the owner's full set, ignoring any active filters.
func (r *gormTodoRepository) Stats(ctx context.Context, userID uint) (Stats, error) {
	var stats Stats
	db := r.db.WithContext(ctx)

	if err := db.Model(&domain.Todo{}).Where("user_id = ?", userID).Count(&stats.Total).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&domain.Todo{}).Where("user_id = ? AND status = ?", userID, domain.StatusDone).Count(&stats.Done).Error; err != nil {
		return Stats{}, err
	}
	stats.Pending = stats.Total - stats.Done
	return stats, nil
}

func (r *gormTodoRepository) Update(ctx context.Context, todo *domain.Todo) error {
	return r.db.WithContext(ctx).Save(todo).Error
}

func (r *gormTodoRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Todo{}, id).Error
}
