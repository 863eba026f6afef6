package approvals

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SubjectType discriminates requester sessions from admin sessions
type SubjectType string

const (
	SubjectUser  SubjectType = "user"
	SubjectAdmin SubjectType = "admin"
)

// IsValid reports whether the subject type is known
func (s SubjectType) IsValid() bool {
	return s == SubjectUser || s == SubjectAdmin
}

// AuthClaims represents the verified identity carried by a session token
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	Kind() string
	SubjectType() SubjectType
	AdminRole() AdminRole
	IsAdmin() bool
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	Type      SubjectType `json:"typ"`
	UID       string      `json:"uid,omitempty"`
	EmailAddr string      `json:"email,omitempty"`
	UserRole  string      `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the subject id of the account
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the account email captured at login
func (c *JWTClaims) Email() string {
	return c.EmailAddr
}

// Role returns the admin role, empty for requesters
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// Kind returns the subject type as a plain string
func (c *JWTClaims) Kind() string {
	return string(c.Type)
}

// SubjectType returns the session discriminator
func (c *JWTClaims) SubjectType() SubjectType {
	return c.Type
}

// AdminRole returns the role as an AdminRole; requesters never carry one
func (c *JWTClaims) AdminRole() AdminRole {
	if c.Type != SubjectAdmin {
		return ""
	}
	return AdminRole(c.UserRole)
}

// IsAdmin reports whether the token was minted for an admin
func (c *JWTClaims) IsAdmin() bool {
	return c.Type == SubjectAdmin
}

// HasRole checks if the session carries exactly the given role
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole != "" && c.UserRole == role
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ClaimsSummary is the client facing view of a session
type ClaimsSummary struct {
	SubjectType SubjectType `json:"subjectType"`
	SubjectID   string      `json:"subjectId"`
	Email       string      `json:"email,omitempty"`
	Role        string      `json:"role,omitempty"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// SummarizeClaims builds the session view returned by the session endpoint
func SummarizeClaims(claims AuthClaims) ClaimsSummary {
	if claims == nil {
		return ClaimsSummary{}
	}
	return ClaimsSummary{
		SubjectType: claims.SubjectType(),
		SubjectID:   claims.UserID(),
		Email:       claims.Email(),
		Role:        claims.Role(),
		ExpiresAt:   claims.Expires(),
	}
}
