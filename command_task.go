package approvals

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// CreateTaskMessage is the payload a requester submits to open a task
type CreateTaskMessage struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
	Category    TaskCategory `json:"category"`
}

func (m CreateTaskMessage) Type() string { return "task.create" }

// Normalize trims surrounding whitespace from free text fields
func (m CreateTaskMessage) Normalize() CreateTaskMessage {
	m.Title = strings.TrimSpace(m.Title)
	m.Description = strings.TrimSpace(m.Description)
	m.Priority = TaskPriority(strings.TrimSpace(string(m.Priority)))
	m.Category = TaskCategory(strings.TrimSpace(string(m.Category)))
	return m
}

func (m CreateTaskMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(1, MaxTitleLength),
		),
		validation.Field(&m.Description,
			validation.Required.Error("description is required"),
			validation.RuneLength(1, MaxDescriptionLength),
		),
		validation.Field(&m.Priority,
			validation.Required.Error("priority is required"),
			validation.In(taskPriorityValues()...).Error("priority must be one of low, normal, high, urgent"),
		),
		validation.Field(&m.Category,
			validation.Required.Error("category is required"),
		),
	)
}

// ReviewTaskMessage approves a pending task
type ReviewTaskMessage struct {
	TaskID uuid.UUID `json:"-"`
}

func (m ReviewTaskMessage) Type() string { return "task.approve" }

func (m ReviewTaskMessage) Validate() error {
	if m.TaskID == uuid.Nil {
		return withMetadata(ErrTaskNotFound, map[string]any{"id": m.TaskID.String()})
	}
	return nil
}

// RejectTaskMessage rejects a pending task with a reason
type RejectTaskMessage struct {
	TaskID          uuid.UUID `json:"-"`
	RejectionReason string    `json:"rejectionReason"`
}

func (m RejectTaskMessage) Type() string { return "task.reject" }

func (m RejectTaskMessage) Validate() error {
	if err := validateRejectionReason(m.RejectionReason); err != nil {
		return err
	}
	return ReviewTaskMessage{TaskID: m.TaskID}.Validate()
}

func validateRejectionReason(reason string) error {
	reason = strings.TrimSpace(reason)
	err := validation.Errors{
		"rejectionReason": validation.Validate(reason,
			validation.Required.Error("rejection reason is required"),
			validation.RuneLength(1, MaxRejectionReasonLength),
		),
	}.Filter()
	return validationError(err)
}

func taskPriorityValues() []any {
	priorities := AllTaskPriorities()
	out := make([]any, 0, len(priorities))
	for _, p := range priorities {
		out = append(out, p)
	}
	return out
}
