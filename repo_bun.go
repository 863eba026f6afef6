package approvals

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateSchema creates the tables backing the bun repositories
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Task)(nil),
		(*AdminUser)(nil),
		(*RequesterAccount)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create schema")
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

type bunTasks struct {
	repository.Repository[*Task]
	db *bun.DB
}

// NewTasksRepository returns a bun backed task repository
func NewTasksRepository(db *bun.DB) Tasks {
	return &bunTasks{
		Repository: repository.NewRepository[*Task](db, repository.ModelHandlers[*Task]{
			NewRecord: func() *Task { return &Task{} },
			GetID: func(t *Task) uuid.UUID {
				if t == nil {
					return uuid.Nil
				}
				return t.ID
			},
			SetID: func(t *Task, id uuid.UUID) {
				if t != nil {
					t.ID = id
				}
			},
		}),
		db: db,
	}
}

func (r *bunTasks) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	task, err := r.Repository.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, withMetadata(ErrTaskNotFound, map[string]any{"id": id.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load task")
	}
	return task, nil
}

func (r *bunTasks) List(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	tasks := []*Task{}
	q := r.db.NewSelect().Model(&tasks)
	if filter.CreatedBy != "" {
		q = q.Where("?TableAlias.created_by = ?", filter.CreatedBy)
	}
	if filter.Status != "" {
		q = q.Where("?TableAlias.status = ?", filter.Status)
	}
	if err := q.Order("created_at ASC").Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list tasks")
	}
	return tasks, nil
}

func (r *bunTasks) Create(ctx context.Context, task *Task) (*Task, error) {
	if task == nil {
		return nil, withMessage(ErrValidation, "task is required", nil)
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	created, err := r.Repository.CreateTx(ctx, r.db, task)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create task")
	}
	return created, nil
}

func (r *bunTasks) Update(ctx context.Context, task *Task) (*Task, error) {
	if task == nil {
		return nil, withMessage(ErrValidation, "task is required", nil)
	}
	if _, err := r.GetByID(ctx, task.ID); err != nil {
		return nil, err
	}
	updated, err := r.Repository.UpdateTx(ctx, r.db, task, repository.UpdateByID(task.ID.String()))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update task")
	}
	return updated, nil
}

type bunAdminUsers struct {
	repository.Repository[*AdminUser]
	db *bun.DB
}

// NewAdminUsersRepository returns a bun backed admin directory
func NewAdminUsersRepository(db *bun.DB) AdminUsers {
	return &bunAdminUsers{
		Repository: repository.NewRepository[*AdminUser](db, repository.ModelHandlers[*AdminUser]{
			NewRecord: func() *AdminUser { return &AdminUser{} },
			GetID: func(a *AdminUser) uuid.UUID {
				if a == nil {
					return uuid.Nil
				}
				return a.ID
			},
			SetID: func(a *AdminUser, id uuid.UUID) {
				if a != nil {
					a.ID = id
				}
			},
		}),
		db: db,
	}
}

func (r *bunAdminUsers) GetByID(ctx context.Context, id uuid.UUID) (*AdminUser, error) {
	record, err := r.Repository.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, withMetadata(ErrAdminUserNotFound, map[string]any{"id": id.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load admin user")
	}
	return record, nil
}

func (r *bunAdminUsers) GetByEmail(ctx context.Context, email string) (*AdminUser, error) {
	email = normalizeEmail(email)
	record := &AdminUser{}
	err := r.db.NewSelect().Model(record).Where("?TableAlias.email = ?", email).Limit(1).Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, withMetadata(ErrAdminUserNotFound, map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load admin user")
	}
	return record, nil
}

func (r *bunAdminUsers) List(ctx context.Context) ([]*AdminUser, error) {
	records := []*AdminUser{}
	err := r.db.NewSelect().Model(&records).Order("created_at ASC", "email ASC").Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list admin users")
	}
	return records, nil
}

func (r *bunAdminUsers) Create(ctx context.Context, record *AdminUser) (*AdminUser, error) {
	if record == nil {
		return nil, withMessage(ErrValidation, "admin user is required", nil)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = normalizeEmail(record.Email)
	created, err := r.Repository.CreateTx(ctx, r.db, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, withMetadata(ErrEmailConflict, map[string]any{"email": record.Email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create admin user")
	}
	return created, nil
}

func (r *bunAdminUsers) Update(ctx context.Context, record *AdminUser) (*AdminUser, error) {
	if record == nil {
		return nil, withMessage(ErrValidation, "admin user is required", nil)
	}
	if _, err := r.GetByID(ctx, record.ID); err != nil {
		return nil, err
	}
	record.Email = normalizeEmail(record.Email)
	updated, err := r.Repository.UpdateTx(ctx, r.db, record, repository.UpdateByID(record.ID.String()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, withMetadata(ErrEmailConflict, map[string]any{"email": record.Email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update admin user")
	}
	return updated, nil
}

func (r *bunAdminUsers) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().Model((*AdminUser)(nil)).Where("id = ?", id.String()).Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete admin user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return withMetadata(ErrAdminUserNotFound, map[string]any{"id": id.String()})
	}
	return nil
}

type bunRequesters struct {
	repository.Repository[*RequesterAccount]
	db *bun.DB
}

// NewRequestersRepository returns a bun backed requester repository
func NewRequestersRepository(db *bun.DB) Requesters {
	return &bunRequesters{
		Repository: repository.NewRepository[*RequesterAccount](db, repository.ModelHandlers[*RequesterAccount]{
			NewRecord: func() *RequesterAccount { return &RequesterAccount{} },
			GetID: func(a *RequesterAccount) uuid.UUID {
				if a == nil {
					return uuid.Nil
				}
				return a.ID
			},
			SetID: func(a *RequesterAccount, id uuid.UUID) {
				if a != nil {
					a.ID = id
				}
			},
		}),
		db: db,
	}
}

func (r *bunRequesters) GetByID(ctx context.Context, id uuid.UUID) (*RequesterAccount, error) {
	record, err := r.Repository.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, withMetadata(ErrRequesterNotFound, map[string]any{"id": id.String()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load requester")
	}
	return record, nil
}

func (r *bunRequesters) GetByEmail(ctx context.Context, email string) (*RequesterAccount, error) {
	email = normalizeEmail(email)
	record := &RequesterAccount{}
	err := r.db.NewSelect().Model(record).Where("?TableAlias.email = ?", email).Limit(1).Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, withMetadata(ErrRequesterNotFound, map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load requester")
	}
	return record, nil
}

func (r *bunRequesters) Create(ctx context.Context, record *RequesterAccount) (*RequesterAccount, error) {
	if record == nil {
		return nil, withMessage(ErrValidation, "requester is required", nil)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = normalizeEmail(record.Email)
	created, err := r.Repository.CreateTx(ctx, r.db, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, withMetadata(ErrEmailConflict, map[string]any{"email": record.Email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create requester")
	}
	return created, nil
}

type bunManager struct {
	db         *bun.DB
	tasks      Tasks
	adminUsers AdminUsers
	requesters Requesters
}

// NewRepositoryManager returns a manager over bun repositories
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &bunManager{
		db:         db,
		tasks:      NewTasksRepository(db),
		adminUsers: NewAdminUsersRepository(db),
		requesters: NewRequestersRepository(db),
	}
}

func (m *bunManager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}
	return validateManager(m.tasks, m.adminUsers, m.requesters)
}

func (m *bunManager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *bunManager) Tasks() Tasks {
	return m.tasks
}

func (m *bunManager) AdminUsers() AdminUsers {
	return m.adminUsers
}

func (m *bunManager) Requesters() Requesters {
	return m.requesters
}
