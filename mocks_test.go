package approvals_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	approvals "github.com/goliatone/go-approvals"
)

type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event approvals.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event approvals.Event) {
	m.Called(ctx, event)
}

func activityOfType(t approvals.ActivityEventType) any {
	return mock.MatchedBy(func(event approvals.ActivityEvent) bool {
		return event.EventType == t
	})
}

func eventOfType(t approvals.EventType) any {
	return mock.MatchedBy(func(event approvals.Event) bool {
		return event.Type == t
	})
}

func TestTaskService_SinkFailuresDoNotFailOperations(t *testing.T) {
	sink := &MockActivitySink{}
	sink.On("Record", mock.Anything, activityOfType(approvals.ActivityEventTaskCreated)).
		Return(errors.New("audit store offline")).Once()
	sink.On("Record", mock.Anything, activityOfType(approvals.ActivityEventTaskStatusChange)).
		Return(errors.New("audit store offline"))

	publisher := &MockPublisher{}
	publisher.On("Publish", mock.Anything, eventOfType(approvals.EventTaskCreated)).Once()
	publisher.On("Publish", mock.Anything, eventOfType(approvals.EventTaskUpdated)).Once()

	svc := approvals.NewTaskService(approvals.NewMemoryTasks(),
		approvals.WithTaskClock(fixedClock),
		approvals.WithTaskActivitySink(sink),
		approvals.WithTaskPublisher(publisher),
		approvals.WithTaskLogger(nopLogger{}),
	)

	ctx := context.Background()
	task, err := svc.Create(ctx, requesterClaims("user-1"), validTaskMessage())
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, adminClaims(approvals.RoleModerator), task.ID)
	require.NoError(t, err)
	require.Equal(t, approvals.TaskStatusApproved, approved.Status)

	sink.AssertExpectations(t)
	publisher.AssertExpectations(t)
}
