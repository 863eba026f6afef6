package approvals

import (
	"context"

	"github.com/google/uuid"
)

// Tasks stores task records
type Tasks interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*Task, error)
	Create(ctx context.Context, task *Task) (*Task, error)
	Update(ctx context.Context, task *Task) (*Task, error)
}

// AdminUsers stores the admin directory
type AdminUsers interface {
	GetByID(ctx context.Context, id uuid.UUID) (*AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*AdminUser, error)
	List(ctx context.Context) ([]*AdminUser, error)
	Create(ctx context.Context, record *AdminUser) (*AdminUser, error)
	Update(ctx context.Context, record *AdminUser) (*AdminUser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Requesters stores requester accounts, only seeding writes to it
type Requesters interface {
	GetByID(ctx context.Context, id uuid.UUID) (*RequesterAccount, error)
	GetByEmail(ctx context.Context, email string) (*RequesterAccount, error)
	Create(ctx context.Context, record *RequesterAccount) (*RequesterAccount, error)
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	Tasks() Tasks
	AdminUsers() AdminUsers
	Requesters() Requesters
}
