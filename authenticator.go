package approvals

import (
	"context"
	"time"
)

// RequesterSession is returned by a successful requester login
type RequesterSession struct {
	Token string            `json:"token"`
	User  *RequesterAccount `json:"user"`
}

// AdminSession is returned by a successful admin login
type AdminSession struct {
	Token string     `json:"token"`
	Admin *AdminUser `json:"admin"`
}

// Auther logs requesters and admins in and resolves sessions from tokens
type Auther struct {
	requesters   IdentityProvider
	admins       IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(requesters, admins IdentityProvider, tokenService TokenService) *Auther {
	return &Auther{
		requesters:   requesters,
		admins:       admins,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// LoginRequester verifies requester credentials and mints a user session
func (s *Auther) LoginRequester(ctx context.Context, req LoginRequest) (*RequesterSession, error) {
	token, identity, err := s.Login(ctx, SubjectUser, req)
	if err != nil {
		return nil, err
	}
	session := &RequesterSession{Token: token}
	if ri, ok := identity.(RequesterIdentity); ok {
		session.User = ri.Account()
	}
	return session, nil
}

// LoginAdmin verifies admin credentials and mints an admin session
func (s *Auther) LoginAdmin(ctx context.Context, req LoginRequest) (*AdminSession, error) {
	token, identity, err := s.Login(ctx, SubjectAdmin, req)
	if err != nil {
		return nil, err
	}
	session := &AdminSession{Token: token}
	if ai, ok := identity.(AdminIdentity); ok {
		session.Admin = ai.Admin()
	}
	return session, nil
}

// Login verifies credentials against the provider of subject
func (s *Auther) Login(ctx context.Context, subject SubjectType, req LoginRequest) (string, Identity, error) {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return "", nil, withMetadata(ErrInvalidCredentials, map[string]any{"cause": err.Error()})
	}

	provider := s.providerFor(subject)
	if provider == nil {
		return "", nil, withMetadata(ErrInvalidCredentials, map[string]any{"subject_type": subject})
	}

	identity, err := provider.VerifyIdentity(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("login failed subject=%s error=%v", subject, err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier":   req.Email,
			"subject_type": subject,
			"error":        err.Error(),
		})
		return "", nil, err
	}

	if identity == nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("login token generation failed: %v", err)
		return "", nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, ActorRef{ID: identity.ID(), Type: string(subject)}, identity.ID(), map[string]any{
		"identifier": req.Email,
	})

	return token, identity, nil
}

// SessionFromToken validates raw for the expected subject, an empty subject
// accepts either kind.
func (s *Auther) SessionFromToken(raw string, subject SubjectType) (AuthClaims, error) {
	if subject == "" {
		return s.tokenService.Validate(raw)
	}
	return s.tokenService.ValidateFor(raw, subject)
}

func (s *Auther) providerFor(subject SubjectType) IdentityProvider {
	switch subject {
	case SubjectUser:
		return s.requesters
	case SubjectAdmin:
		return s.admins
	default:
		return nil
	}
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, objectID string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	recordActivity(ctx, s.activitySink, s.logger, s.now, ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		ObjectID:  objectID,
		Metadata:  metadata,
	})
}
