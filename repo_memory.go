package approvals

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// memoryStore keeps records in insertion order and hands out clones only,
// callers never share memory with stored values.
type memoryStore[T any] struct {
	mu    sync.RWMutex
	order []uuid.UUID
	items map[uuid.UUID]T
	clone func(T) T
}

func newMemoryStore[T any](clone func(T) T) *memoryStore[T] {
	return &memoryStore[T]{
		items: make(map[uuid.UUID]T),
		clone: clone,
	}
}

func (s *memoryStore[T]) get(id uuid.UUID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.clone(item), true
}

func (s *memoryStore[T]) find(match func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if item := s.items[id]; match(item) {
			return s.clone(item), true
		}
	}
	var zero T
	return zero, false
}

func (s *memoryStore[T]) list(match func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		if match == nil || match(item) {
			out = append(out, s.clone(item))
		}
	}
	return out
}

// insert stores item unless conflict reports a clash with an existing record
func (s *memoryStore[T]) insert(id uuid.UUID, item T, conflict func(existing T) bool) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conflict != nil {
		for _, existingID := range s.order {
			if conflict(s.items[existingID]) {
				var zero T
				return zero, false
			}
		}
	}
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = s.clone(item)
	return s.clone(item), true
}

func (s *memoryStore[T]) replace(id uuid.UUID, item T, conflict func(existing T) bool) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if _, ok := s.items[id]; !ok {
		return zero, errMemoryMissing
	}
	if conflict != nil {
		for _, existingID := range s.order {
			if existingID != id && conflict(s.items[existingID]) {
				return zero, errMemoryConflict
			}
		}
	}
	s.items[id] = s.clone(item)
	return s.clone(item), nil
}

func (s *memoryStore[T]) remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

var (
	errMemoryMissing  = errors.New("record not found")
	errMemoryConflict = errors.New("record conflict")
)

type memoryTasks struct {
	store *memoryStore[*Task]
}

// NewMemoryTasks returns a volatile task repository
func NewMemoryTasks() Tasks {
	return &memoryTasks{store: newMemoryStore((*Task).Clone)}
}

func (r *memoryTasks) GetByID(_ context.Context, id uuid.UUID) (*Task, error) {
	task, ok := r.store.get(id)
	if !ok {
		return nil, withMetadata(ErrTaskNotFound, map[string]any{"id": id.String()})
	}
	return task, nil
}

func (r *memoryTasks) List(_ context.Context, filter TaskFilter) ([]*Task, error) {
	tasks := r.store.list(filter.Matches)
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *memoryTasks) Create(_ context.Context, task *Task) (*Task, error) {
	if task == nil {
		return nil, withMessage(ErrValidation, "task is required", nil)
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	id := task.ID
	created, ok := r.store.insert(id, task, func(existing *Task) bool {
		return existing.ID == id
	})
	if !ok {
		return nil, withMessage(ErrValidation, "task id already exists", map[string]any{"id": id.String()})
	}
	return created, nil
}

func (r *memoryTasks) Update(_ context.Context, task *Task) (*Task, error) {
	if task == nil {
		return nil, withMessage(ErrValidation, "task is required", nil)
	}
	updated, err := r.store.replace(task.ID, task, nil)
	if err != nil {
		return nil, withMetadata(ErrTaskNotFound, map[string]any{"id": task.ID.String()})
	}
	return updated, nil
}

type memoryAdminUsers struct {
	store *memoryStore[*AdminUser]
}

// NewMemoryAdminUsers returns a volatile admin directory repository
func NewMemoryAdminUsers() AdminUsers {
	return &memoryAdminUsers{store: newMemoryStore((*AdminUser).Clone)}
}

func (r *memoryAdminUsers) GetByID(_ context.Context, id uuid.UUID) (*AdminUser, error) {
	record, ok := r.store.get(id)
	if !ok {
		return nil, withMetadata(ErrAdminUserNotFound, map[string]any{"id": id.String()})
	}
	return record, nil
}

func (r *memoryAdminUsers) GetByEmail(_ context.Context, email string) (*AdminUser, error) {
	email = normalizeEmail(email)
	record, ok := r.store.find(func(a *AdminUser) bool {
		return normalizeEmail(a.Email) == email
	})
	if !ok {
		return nil, withMetadata(ErrAdminUserNotFound, map[string]any{"email": email})
	}
	return record, nil
}

func (r *memoryAdminUsers) List(_ context.Context) ([]*AdminUser, error) {
	return r.store.list(nil), nil
}

func (r *memoryAdminUsers) Create(_ context.Context, record *AdminUser) (*AdminUser, error) {
	if record == nil {
		return nil, withMessage(ErrValidation, "admin user is required", nil)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	id, email := record.ID, normalizeEmail(record.Email)
	created, ok := r.store.insert(id, record, func(existing *AdminUser) bool {
		return existing.ID == id || normalizeEmail(existing.Email) == email
	})
	if !ok {
		return nil, withMetadata(ErrEmailConflict, map[string]any{"email": email})
	}
	return created, nil
}

func (r *memoryAdminUsers) Update(_ context.Context, record *AdminUser) (*AdminUser, error) {
	if record == nil {
		return nil, withMessage(ErrValidation, "admin user is required", nil)
	}
	email := normalizeEmail(record.Email)
	updated, err := r.store.replace(record.ID, record, func(existing *AdminUser) bool {
		return normalizeEmail(existing.Email) == email
	})
	switch {
	case errors.Is(err, errMemoryMissing):
		return nil, withMetadata(ErrAdminUserNotFound, map[string]any{"id": record.ID.String()})
	case errors.Is(err, errMemoryConflict):
		return nil, withMetadata(ErrEmailConflict, map[string]any{"email": email})
	}
	return updated, nil
}

func (r *memoryAdminUsers) Delete(_ context.Context, id uuid.UUID) error {
	if !r.store.remove(id) {
		return withMetadata(ErrAdminUserNotFound, map[string]any{"id": id.String()})
	}
	return nil
}

type memoryRequesters struct {
	store *memoryStore[*RequesterAccount]
}

// NewMemoryRequesters returns a volatile requester repository
func NewMemoryRequesters() Requesters {
	return &memoryRequesters{store: newMemoryStore((*RequesterAccount).Clone)}
}

func (r *memoryRequesters) GetByID(_ context.Context, id uuid.UUID) (*RequesterAccount, error) {
	record, ok := r.store.get(id)
	if !ok {
		return nil, withMetadata(ErrRequesterNotFound, map[string]any{"id": id.String()})
	}
	return record, nil
}

func (r *memoryRequesters) GetByEmail(_ context.Context, email string) (*RequesterAccount, error) {
	email = normalizeEmail(email)
	record, ok := r.store.find(func(a *RequesterAccount) bool {
		return normalizeEmail(a.Email) == email
	})
	if !ok {
		return nil, withMetadata(ErrRequesterNotFound, map[string]any{"email": email})
	}
	return record, nil
}

func (r *memoryRequesters) Create(_ context.Context, record *RequesterAccount) (*RequesterAccount, error) {
	if record == nil {
		return nil, withMessage(ErrValidation, "requester is required", nil)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	id, email := record.ID, normalizeEmail(record.Email)
	created, ok := r.store.insert(id, record, func(existing *RequesterAccount) bool {
		return existing.ID == id || normalizeEmail(existing.Email) == email
	})
	if !ok {
		return nil, withMetadata(ErrEmailConflict, map[string]any{"email": email})
	}
	return created, nil
}

type memoryManager struct {
	tasks      Tasks
	adminUsers AdminUsers
	requesters Requesters
}

// NewMemoryRepositoryManager returns a manager over volatile repositories
func NewMemoryRepositoryManager() RepositoryManager {
	return &memoryManager{
		tasks:      NewMemoryTasks(),
		adminUsers: NewMemoryAdminUsers(),
		requesters: NewMemoryRequesters(),
	}
}

func (m *memoryManager) Validate() error {
	return validateManager(m.tasks, m.adminUsers, m.requesters)
}

func (m *memoryManager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *memoryManager) Tasks() Tasks {
	return m.tasks
}

func (m *memoryManager) AdminUsers() AdminUsers {
	return m.adminUsers
}

func (m *memoryManager) Requesters() Requesters {
	return m.requesters
}

func validateManager(tasks Tasks, adminUsers AdminUsers, requesters Requesters) error {
	if tasks == nil {
		return errors.New("repository tasks should be initialized")
	}
	if adminUsers == nil {
		return errors.New("repository adminUsers should be initialized")
	}
	if requesters == nil {
		return errors.New("repository requesters should be initialized")
	}
	return nil
}
