package approvals

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TaskStatus is the lifecycle status of a task
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusApproved TaskStatus = "approved"
	TaskStatusRejected TaskStatus = "rejected"
)

// IsValid reports whether the status is one of the known statuses
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusApproved, TaskStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves this status
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusApproved || s == TaskStatusRejected
}

// TaskPriority is the requester supplied urgency
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityNormal TaskPriority = "normal"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// AllTaskPriorities returns priorities from lowest to highest
func AllTaskPriorities() []TaskPriority {
	return []TaskPriority{
		TaskPriorityLow,
		TaskPriorityNormal,
		TaskPriorityHigh,
		TaskPriorityUrgent,
	}
}

// TaskCategory groups requests by department
type TaskCategory string

const (
	TaskCategoryTechnicalSupport TaskCategory = "technical-support"
	TaskCategoryLeaveRequest     TaskCategory = "leave-request"
	TaskCategoryPurchasing       TaskCategory = "purchasing"
	TaskCategoryOther            TaskCategory = "other"
)

// AllTaskCategories returns the categories clients offer by default
func AllTaskCategories() []TaskCategory {
	return []TaskCategory{
		TaskCategoryTechnicalSupport,
		TaskCategoryLeaveRequest,
		TaskCategoryPurchasing,
		TaskCategoryOther,
	}
}

const (
	MaxTitleLength           = 200
	MaxDescriptionLength     = 1000
	MaxRejectionReasonLength = 500
	MinPasswordLength        = 6
)

// Task is a request submitted by a requester and reviewed by admins
type Task struct {
	bun.BaseModel   `bun:"table:tasks,alias:tsk"`
	ID              uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	Title           string       `bun:"title,notnull" json:"title"`
	Description     string       `bun:"description,notnull" json:"description"`
	Priority        TaskPriority `bun:"priority,notnull" json:"priority"`
	Category        TaskCategory `bun:"category,notnull" json:"category"`
	Status          TaskStatus   `bun:"status,notnull" json:"status"`
	CreatedBy       string       `bun:"created_by,notnull" json:"createdBy"`
	CreatedAt       time.Time    `bun:"created_at,notnull" json:"createdAt"`
	RejectionReason string       `bun:"rejection_reason" json:"rejectionReason,omitempty"`
}

// Clone returns a detached copy so readers never share memory with the store
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// IsOwnedBy reports whether subjectID created the task
func (t *Task) IsOwnedBy(subjectID string) bool {
	return t != nil && subjectID != "" && t.CreatedBy == subjectID
}

// HasConsistentRejection checks the status/reason pairing invariant
func (t *Task) HasConsistentRejection() bool {
	if t == nil {
		return false
	}
	if t.Status == TaskStatusRejected {
		return strings.TrimSpace(t.RejectionReason) != ""
	}
	return t.RejectionReason == ""
}

// AdminUser is an account in the admin directory
type AdminUser struct {
	bun.BaseModel `bun:"table:admin_users,alias:adm"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Role          AdminRole  `bun:"role,notnull" json:"role"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// Clone returns a detached copy
func (a *AdminUser) Clone() *AdminUser {
	if a == nil {
		return nil
	}
	c := *a
	if a.CreatedAt != nil {
		t := *a.CreatedAt
		c.CreatedAt = &t
	}
	if a.UpdatedAt != nil {
		t := *a.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// RequesterAccount is a seeded end user account, read-only at runtime
type RequesterAccount struct {
	bun.BaseModel `bun:"table:requesters,alias:req"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
}

// Clone returns a detached copy
func (r *RequesterAccount) Clone() *RequesterAccount {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// TaskFilter narrows task listings
type TaskFilter struct {
	CreatedBy string
	Status    TaskStatus
}

// Matches reports whether the task satisfies every set filter field
func (f TaskFilter) Matches(t *Task) bool {
	if t == nil {
		return false
	}
	if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
