package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"todo-webapp/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testDBOnce sync.Once
	testDB     *gorm.DB
	testDBErr  error
)

// setupTestDB starts one throwaway postgres container for the package and
// migrates the schema into it. Tests skip when Docker is unavailable.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBOnce.Do(func() {
		// testcontainers panics (rather than erroring) when no Docker host
		// can be found; fold that into the skip path below.
		defer func() {
			if r := recover(); r != nil {
				testDBErr = fmt.Errorf("docker unavailable: %v", r)
			}
		}()
		ctx := context.Background()
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("todoapp_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			testDBErr = err
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			testDBErr = err
			return
		}

		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err != nil {
			testDBErr = err
			return
		}

		if err := db.AutoMigrate(&domain.User{}, &domain.Todo{}); err != nil {
			testDBErr = err
			return
		}
		testDB = db
	})

	if testDBErr != nil {
		t.Skipf("postgres container unavailable: %v", testDBErr)
	}
	return testDB
}

func resetTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec("TRUNCATE todos, users RESTART IDENTITY CASCADE").Error)
}

func seedUser(t *testing.T, db *gorm.DB, email string) uint {
	t.Helper()
	user := &domain.User{Name: "Test User", Email: email, PasswordHash: "irrelevant"}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestTodoRepositoryCRUD(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)
	repo := NewGormTodoRepository(db)
	ctx := context.Background()

	userID := seedUser(t, db, "crud@x.com")

	todo := &domain.Todo{UserID: userID, Title: "Buy milk", Status: domain.StatusPending}
	require.NoError(t, repo.Create(ctx, todo))
	require.NotZero(t, todo.ID)

	found, err := repo.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", found.Title)
	assert.Equal(t, userID, found.UserID)

	found.Status = domain.StatusDone
	require.NoError(t, repo.Update(ctx, found))
	again, err := repo.FindByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, again.Status)

	require.NoError(t, repo.Delete(ctx, todo.ID))
	_, err = repo.FindByID(ctx, todo.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTodoRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)
	repo := NewGormTodoRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner@x.com")
	other := seedUser(t, db, "other@x.com")

	seed := []*domain.Todo{
		{UserID: owner, Title: "Buy MILK", Note: "from the corner shop", Status: domain.StatusPending},
		{UserID: owner, Title: "Walk dog", Note: "morning", Status: domain.StatusDone},
		{UserID: owner, Title: "Call plumber", Note: "about the milk frother", Status: domain.StatusPending},
		{UserID: other, Title: "milk the cows", Status: domain.StatusPending},
	}
	for _, todoRow := range seed {
		require.NoError(t, repo.Create(ctx, todoRow))
	}

	// Search is case-insensitive and matches title OR note, owner-scoped.
	todos, total, err := repo.List(ctx, ListParams{UserID: owner, Search: "milk", Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	titles := make([]string, 0, len(todos))
	for _, todoRow := range todos {
		titles = append(titles, todoRow.Title)
		assert.Equal(t, owner, todoRow.UserID)
	}
	assert.ElementsMatch(t, []string{"Buy MILK", "Call plumber"}, titles)

	// Status filter.
	todos, total, err = repo.List(ctx, ListParams{UserID: owner, Status: domain.StatusDone, Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, todos, 1)
	assert.Equal(t, "Walk dog", todos[0].Title)
}

func TestTodoRepositoryListOrdersByDueDateNullsLast(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)
	repo := NewGormTodoRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "order@x.com")

	seed := []*domain.Todo{
		{UserID: owner, Title: "no due date", Status: domain.StatusPending},
		{UserID: owner, Title: "due later", Status: domain.StatusPending, DueDate: date("2026-09-15")},
		{UserID: owner, Title: "due soon", Status: domain.StatusPending, DueDate: date("2026-09-01")},
	}
	for _, todoRow := range seed {
		require.NoError(t, repo.Create(ctx, todoRow))
	}

	todos, _, err := repo.List(ctx, ListParams{UserID: owner, Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, todos, 3)
	assert.Equal(t, "due soon", todos[0].Title)
	assert.Equal(t, "due later", todos[1].Title)
	assert.Equal(t, "no due date", todos[2].Title)
}

func TestTodoRepositoryListPagination(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)
	repo := NewGormTodoRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "page@x.com")
	for i := 0; i < 25; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Todo{
			UserID: owner,
			Title:  fmt.Sprintf("task %02d", i),
			Status: domain.StatusPending,
		}))
	}

	page1, total, err := repo.List(ctx, ListParams{UserID: owner, Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page1, 20)

	page2, total, err := repo.List(ctx, ListParams{UserID: owner, Page: 2, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page2, 5)

	// No overlap between pages; id tiebreak keeps the order stable.
	seen := make(map[uint]bool)
	for _, todoRow := range append(page1, page2...) {
		assert.False(t, seen[todoRow.ID])
		seen[todoRow.ID] = true
	}
}

func TestTodoRepositoryStats(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)
	repo := NewGormTodoRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "stats@x.com")
	other := seedUser(t, db, "stats-other@x.com")

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Todo{UserID: owner, Title: "p", Status: domain.StatusPending}))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Todo{UserID: owner, Title: "d", Status: domain.StatusDone}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Todo{UserID: other, Title: "x", Status: domain.StatusDone}))

	stats, err := repo.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(2), stats.Done)
	assert.Equal(t, int64(3), stats.Pending)
}

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	resetTables(t, db)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Name: "Alice", Email: "alice@x.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	taken, err := repo.EmailTaken(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.EmailTaken(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.False(t, taken)

	// The unique index rejects a second registration, surfaced as the
	// translated duplicate-key error the auth service keys off.
	dup := &domain.User{Name: "Alice Again", Email: "alice@x.com", PasswordHash: "hash"}
	err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
