package approvals_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	approvals "github.com/goliatone/go-approvals"
)

func validTaskMessage() approvals.CreateTaskMessage {
	return approvals.CreateTaskMessage{
		Title:       "Monitor replacement",
		Description: "The office monitor is broken",
		Priority:    approvals.TaskPriorityNormal,
		Category:    approvals.TaskCategoryPurchasing,
	}
}

func TestCreateTaskMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *approvals.CreateTaskMessage)
		wantErr bool
	}{
		{"valid", func(m *approvals.CreateTaskMessage) {}, false},
		{"title at limit", func(m *approvals.CreateTaskMessage) { m.Title = strings.Repeat("a", 200) }, false},
		{"title over limit", func(m *approvals.CreateTaskMessage) { m.Title = strings.Repeat("a", 201) }, true},
		{"title counted in runes", func(m *approvals.CreateTaskMessage) { m.Title = strings.Repeat("ğ", 200) }, false},
		{"missing title", func(m *approvals.CreateTaskMessage) { m.Title = "" }, true},
		{"description at limit", func(m *approvals.CreateTaskMessage) { m.Description = strings.Repeat("d", 1000) }, false},
		{"description over limit", func(m *approvals.CreateTaskMessage) { m.Description = strings.Repeat("d", 1001) }, true},
		{"missing description", func(m *approvals.CreateTaskMessage) { m.Description = "" }, true},
		{"unknown priority", func(m *approvals.CreateTaskMessage) { m.Priority = "critical" }, true},
		{"missing priority", func(m *approvals.CreateTaskMessage) { m.Priority = "" }, true},
		{"free form category", func(m *approvals.CreateTaskMessage) { m.Category = "facilities" }, false},
		{"missing category", func(m *approvals.CreateTaskMessage) { m.Category = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validTaskMessage()
			tt.mutate(&msg)
			err := msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateTaskMessage_Normalize(t *testing.T) {
	msg := approvals.CreateTaskMessage{
		Title:       "  Title  ",
		Description: "\tBody\n",
		Priority:    " high ",
		Category:    " other",
	}.Normalize()

	assert.Equal(t, "Title", msg.Title)
	assert.Equal(t, "Body", msg.Description)
	assert.Equal(t, approvals.TaskPriorityHigh, msg.Priority)
	assert.Equal(t, approvals.TaskCategoryOther, msg.Category)

	blank := approvals.CreateTaskMessage{Title: "   "}.Normalize()
	assert.Error(t, blank.Validate())
}

func TestRejectTaskMessage_Validate(t *testing.T) {
	id := uuid.New()

	assert.NoError(t, approvals.RejectTaskMessage{TaskID: id, RejectionReason: "over budget"}.Validate())
	assert.NoError(t, approvals.RejectTaskMessage{TaskID: id, RejectionReason: strings.Repeat("r", 500)}.Validate())

	err := approvals.RejectTaskMessage{TaskID: id, RejectionReason: strings.Repeat("r", 501)}.Validate()
	requireTextCode(t, err, approvals.TextCodeValidation)

	err = approvals.RejectTaskMessage{TaskID: id, RejectionReason: "   \t "}.Validate()
	requireTextCode(t, err, approvals.TextCodeValidation)

	err = approvals.RejectTaskMessage{TaskID: id}.Validate()
	requireTextCode(t, err, approvals.TextCodeValidation)

	err = approvals.RejectTaskMessage{TaskID: uuid.Nil, RejectionReason: "fine"}.Validate()
	requireTextCode(t, err, approvals.TextCodeTaskNotFound)
}

func TestLoginRequest_Validate(t *testing.T) {
	assert.NoError(t, approvals.LoginRequest{Email: "a@b.co", Password: "x"}.Validate())
	assert.Error(t, approvals.LoginRequest{Email: "a@b.co"}.Validate())
	assert.Error(t, approvals.LoginRequest{Password: "x"}.Validate())
}

func TestCreateAdminUserMessage_Validate(t *testing.T) {
	valid := approvals.CreateAdminUserMessage{
		Name:     "New Admin",
		Email:    "new@test.com",
		Role:     "Viewer",
		Password: "secret",
	}

	tests := []struct {
		name    string
		mutate  func(m *approvals.CreateAdminUserMessage)
		wantErr bool
	}{
		{"valid", func(m *approvals.CreateAdminUserMessage) {}, false},
		{"missing name", func(m *approvals.CreateAdminUserMessage) { m.Name = "" }, true},
		{"bad email", func(m *approvals.CreateAdminUserMessage) { m.Email = "not-an-email" }, true},
		{"email without tld", func(m *approvals.CreateAdminUserMessage) { m.Email = "a@b" }, true},
		{"email with spaces", func(m *approvals.CreateAdminUserMessage) { m.Email = "a b@c.com" }, true},
		{"unknown role", func(m *approvals.CreateAdminUserMessage) { m.Role = "Owner" }, true},
		{"lowercase role", func(m *approvals.CreateAdminUserMessage) { m.Role = "admin" }, true},
		{"short password", func(m *approvals.CreateAdminUserMessage) { m.Password = "12345" }, true},
		{"minimum password", func(m *approvals.CreateAdminUserMessage) { m.Password = "123456" }, false},
		{"missing password", func(m *approvals.CreateAdminUserMessage) { m.Password = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)
			err := msg.Normalize().Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateAdminUserMessage_Validate(t *testing.T) {
	msg := approvals.UpdateAdminUserMessage{
		ID:    uuid.New(),
		Name:  "Renamed",
		Email: " Renamed@Test.com ",
		Role:  "Moderator",
	}.Normalize()

	assert.Equal(t, "renamed@test.com", msg.Email)
	assert.NoError(t, msg.Validate(), "password is optional on update")

	msg.Password = "123"
	assert.Error(t, msg.Validate())
}
