package approvals

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TaskServiceOption customizes a TaskService
type TaskServiceOption func(*TaskService)

// WithTaskClock injects the clock used for createdAt and event timestamps
func WithTaskClock(now func() time.Time) TaskServiceOption {
	return func(s *TaskService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTaskPublisher sets where committed mutations are announced
func WithTaskPublisher(p Publisher) TaskServiceOption {
	return func(s *TaskService) {
		s.publisher = normalizePublisher(p)
	}
}

// WithTaskLogger sets the logger
func WithTaskLogger(logger Logger) TaskServiceOption {
	return func(s *TaskService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTaskActivitySink sets the audit sink
func WithTaskActivitySink(sink ActivitySink) TaskServiceOption {
	return func(s *TaskService) {
		s.activitySink = normalizeActivitySink(sink)
	}
}

// WithTaskStateMachine replaces the default lifecycle
func WithTaskStateMachine(sm TaskStateMachine) TaskServiceOption {
	return func(s *TaskService) {
		s.machine = sm
	}
}

// WithTaskStrictTerminalStates makes repeated approve or reject calls on a
// decided task fail instead of succeeding again. Ignored when a custom state
// machine is supplied.
func WithTaskStrictTerminalStates(strict bool) TaskServiceOption {
	return func(s *TaskService) {
		s.strictTerminal = strict
	}
}

// TaskService owns task creation and review. Mutations run one at a time and
// publish their event before the lock is released, so subscribers see
// events in commit order.
type TaskService struct {
	mu           sync.Mutex
	tasks        Tasks
	machine      TaskStateMachine
	publisher    Publisher
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time

	strictTerminal bool
}

// NewTaskService creates a service over the given repository
func NewTaskService(tasks Tasks, opts ...TaskServiceOption) *TaskService {
	s := &TaskService{
		tasks:        tasks,
		publisher:    noopPublisher{},
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.machine == nil {
		machineOpts := []StateMachineOption{
			WithStateMachineClock(s.now),
			WithStateMachineActivitySink(s.activitySink),
			WithStateMachineLogger(s.logger),
			WithStateMachineHookErrorHandler(s.onHookError),
		}
		if s.strictTerminal {
			machineOpts = append(machineOpts, WithStrictTerminalStates())
		}
		s.machine = NewTaskStateMachine(tasks, machineOpts...)
	}
	return s
}

// Create opens a pending task owned by the requester in claims
func (s *TaskService) Create(ctx context.Context, claims AuthClaims, msg CreateTaskMessage) (*Task, error) {
	if err := checkContext(ctx, "task creation"); err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(claims, OpTasksCreate); err != nil {
		return nil, err
	}

	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		return nil, validationError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       msg.Title,
		Description: msg.Description,
		Priority:    msg.Priority,
		Category:    msg.Category,
		Status:      TaskStatusPending,
		CreatedBy:   claims.UserID(),
		CreatedAt:   now,
	}

	created, err := s.tasks.Create(ctx, task)
	if err != nil {
		return nil, wrapInternal(err, "could not create task")
	}

	recordActivity(ctx, s.activitySink, s.logger, s.now, ActivityEvent{
		EventType: ActivityEventTaskCreated,
		Actor:     ActorFromClaims(claims),
		ObjectID:  created.ID.String(),
		ToStatus:  created.Status,
		Metadata:  map[string]any{"priority": created.Priority, "category": created.Category},
	})

	s.publisher.Publish(ctx, NewTaskEvent(EventTaskCreated, created, now))
	return created.Clone(), nil
}

// Approve moves a task to approved
func (s *TaskService) Approve(ctx context.Context, claims AuthClaims, id uuid.UUID) (*Task, error) {
	if err := checkContext(ctx, "task approval"); err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(claims, OpTasksReview); err != nil {
		return nil, err
	}
	if err := (ReviewTaskMessage{TaskID: id}).Validate(); err != nil {
		return nil, err
	}
	return s.review(ctx, claims, id, TaskStatusApproved)
}

// Reject moves a task to rejected, storing the trimmed reason
func (s *TaskService) Reject(ctx context.Context, claims AuthClaims, id uuid.UUID, reason string) (*Task, error) {
	if err := checkContext(ctx, "task rejection"); err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(claims, OpTasksReview); err != nil {
		return nil, err
	}
	if err := (RejectTaskMessage{TaskID: id, RejectionReason: reason}).Validate(); err != nil {
		return nil, err
	}
	return s.review(ctx, claims, id, TaskStatusRejected, WithTransitionReason(reason))
}

func (s *TaskService) review(ctx context.Context, claims AuthClaims, id uuid.UUID, target TaskStatus, opts ...TransitionOption) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	opts = append(opts,
		WithTransitionMetadata(map[string]any{"reviewer_role": claims.Role()}),
		WithBeforeTransitionHook(requireConsistentRejection),
		WithAfterTransitionHook(s.publishUpdate),
	)

	updated, err := s.machine.Transition(ctx, ActorFromClaims(claims), task, target, opts...)
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// publishUpdate runs once the new status is stored
func (s *TaskService) publishUpdate(ctx context.Context, tc TransitionContext) error {
	s.publisher.Publish(ctx, NewTaskEvent(EventTaskUpdated, tc.Task, s.now().UTC()))
	return nil
}

func requireConsistentRejection(_ context.Context, tc TransitionContext) error {
	if tc.Task.HasConsistentRejection() {
		return nil
	}
	return withMetadata(ErrInvalidTransition, map[string]any{
		"to":     tc.To,
		"reason": "status and rejection reason disagree",
	})
}

func (s *TaskService) onHookError(_ context.Context, phase TransitionHookPhase, err error, tc TransitionContext) error {
	s.logger.Error("task %s %s -> %s failed in %s: %v", tc.Task.ID, tc.From, tc.To, phase, err)
	return wrapInternal(err, "task transition hook failed")
}

// ListForUser returns the tasks created by the requester in claims
func (s *TaskService) ListForUser(ctx context.Context, claims AuthClaims) ([]*Task, error) {
	if err := AuthorizeOperation(claims, OpTasksListOwn); err != nil {
		return nil, err
	}

	owner := claims.UserID()
	tasks, err := s.tasks.List(ctx, TaskFilter{CreatedBy: owner})
	if err != nil {
		return nil, wrapInternal(err, "could not list tasks")
	}

	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsOwnedBy(owner) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListAll returns every task to any admin, optionally narrowed by filter
func (s *TaskService) ListAll(ctx context.Context, claims AuthClaims, filter TaskFilter) ([]*Task, error) {
	if err := AuthorizeOperation(claims, OpTasksListAll); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, withMessage(ErrValidation, "unknown task status", map[string]any{"status": filter.Status})
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, wrapInternal(err, "could not list tasks")
	}
	return tasks, nil
}

func checkContext(ctx context.Context, operation string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during "+operation)
	default:
		return nil
	}
}

// wrapInternal keeps rich errors intact and wraps anything else
func wrapInternal(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}
