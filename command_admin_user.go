package approvals

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// bcrypt refuses anything longer
const maxPasswordLength = 72

// LoginRequest carries credentials for either login endpoint
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Type() string { return "auth.login" }

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// CreateAdminUserMessage adds an account to the admin directory
type CreateAdminUserMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (m CreateAdminUserMessage) Type() string { return "admin_user.create" }

func (m CreateAdminUserMessage) Normalize() CreateAdminUserMessage {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = normalizeEmail(m.Email)
	m.Role = strings.TrimSpace(m.Role)
	return m
}

func (m CreateAdminUserMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required.Error("name is required")),
		validation.Field(&m.Email,
			validation.Required.Error("email is required"),
			validation.Match(emailPattern).Error("must be a valid email address"),
		),
		validation.Field(&m.Role,
			validation.Required.Error("role is required"),
			validation.In(adminRoleNames()...).Error("role must be one of Viewer, Moderator, Admin"),
		),
		validation.Field(&m.Password,
			validation.Required.Error("password is required"),
			validation.Length(MinPasswordLength, maxPasswordLength),
		),
	)
}

// UpdateAdminUserMessage replaces name, email and role. An empty password
// leaves the stored credential untouched.
type UpdateAdminUserMessage struct {
	ID       uuid.UUID `json:"-"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Password string    `json:"password,omitempty"`
}

func (m UpdateAdminUserMessage) Type() string { return "admin_user.update" }

func (m UpdateAdminUserMessage) Normalize() UpdateAdminUserMessage {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = normalizeEmail(m.Email)
	m.Role = strings.TrimSpace(m.Role)
	return m
}

func (m UpdateAdminUserMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required.Error("name is required")),
		validation.Field(&m.Email,
			validation.Required.Error("email is required"),
			validation.Match(emailPattern).Error("must be a valid email address"),
		),
		validation.Field(&m.Role,
			validation.Required.Error("role is required"),
			validation.In(adminRoleNames()...).Error("role must be one of Viewer, Moderator, Admin"),
		),
		validation.Field(&m.Password, validation.Length(MinPasswordLength, maxPasswordLength)),
	)
}
