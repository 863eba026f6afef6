package approvals

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AdminDirectoryOption customizes an AdminDirectory
type AdminDirectoryOption func(*AdminDirectory)

// WithDirectoryClock injects the clock used for timestamps
func WithDirectoryClock(now func() time.Time) AdminDirectoryOption {
	return func(d *AdminDirectory) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDirectoryPublisher sets where directory changes are announced
func WithDirectoryPublisher(p Publisher) AdminDirectoryOption {
	return func(d *AdminDirectory) {
		d.publisher = normalizePublisher(p)
	}
}

// WithDirectoryLogger sets the logger
func WithDirectoryLogger(logger Logger) AdminDirectoryOption {
	return func(d *AdminDirectory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDirectoryActivitySink sets the audit sink
func WithDirectoryActivitySink(sink ActivitySink) AdminDirectoryOption {
	return func(d *AdminDirectory) {
		d.activitySink = normalizeActivitySink(sink)
	}
}

// AdminDirectory manages admin accounts. Only the Admin role mutates it.
type AdminDirectory struct {
	mu           sync.Mutex
	users        AdminUsers
	hasher       PasswordAuthenticator
	publisher    Publisher
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewAdminDirectory creates a directory over users, hashing with hasher
func NewAdminDirectory(users AdminUsers, hasher PasswordAuthenticator, opts ...AdminDirectoryOption) *AdminDirectory {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	d := &AdminDirectory{
		users:        users,
		hasher:       hasher,
		publisher:    noopPublisher{},
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// List returns every admin account, the password hash is never serialized
func (d *AdminDirectory) List(ctx context.Context, claims AuthClaims) ([]*AdminUser, error) {
	if err := AuthorizeOperation(claims, OpAdminUsersList); err != nil {
		return nil, err
	}
	records, err := d.users.List(ctx)
	if err != nil {
		return nil, wrapInternal(err, "could not list admin users")
	}
	return records, nil
}

// Create validates and stores a new admin account
func (d *AdminDirectory) Create(ctx context.Context, claims AuthClaims, msg CreateAdminUserMessage) (*AdminUser, error) {
	if err := checkContext(ctx, "admin user creation"); err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(claims, OpAdminUsersManage); err != nil {
		return nil, err
	}

	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		return nil, validationError(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureEmailAvailable(ctx, msg.Email, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := d.hasher.HashPassword(msg.Password)
	if err != nil {
		return nil, wrapInternal(err, "could not hash password")
	}

	now := d.now().UTC()
	record := &AdminUser{
		ID:           uuid.New(),
		Name:         msg.Name,
		Email:        msg.Email,
		Role:         AdminRole(msg.Role),
		PasswordHash: hash,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	created, err := d.users.Create(ctx, record)
	if err != nil {
		return nil, wrapInternal(err, "could not create admin user")
	}

	d.committed(ctx, claims, ActivityEventAdminCreated, DirectoryChangeCreated, created, created.ID, now)
	return created, nil
}

// Update replaces name, email and role, rehashing only when a password is given
func (d *AdminDirectory) Update(ctx context.Context, claims AuthClaims, msg UpdateAdminUserMessage) (*AdminUser, error) {
	if err := checkContext(ctx, "admin user update"); err != nil {
		return nil, err
	}
	if err := AuthorizeOperation(claims, OpAdminUsersManage); err != nil {
		return nil, err
	}

	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		return nil, validationError(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.users.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if err := d.ensureEmailAvailable(ctx, msg.Email, existing.ID); err != nil {
		return nil, err
	}

	next := existing.Clone()
	next.Name = msg.Name
	next.Email = msg.Email
	next.Role = AdminRole(msg.Role)
	if msg.Password != "" {
		hash, err := d.hasher.HashPassword(msg.Password)
		if err != nil {
			return nil, wrapInternal(err, "could not hash password")
		}
		next.PasswordHash = hash
	}
	now := d.now().UTC()
	next.UpdatedAt = &now

	updated, err := d.users.Update(ctx, next)
	if err != nil {
		return nil, wrapInternal(err, "could not update admin user")
	}

	d.committed(ctx, claims, ActivityEventAdminUpdated, DirectoryChangeUpdated, updated, updated.ID, now)
	return updated, nil
}

// Delete removes an admin account
func (d *AdminDirectory) Delete(ctx context.Context, claims AuthClaims, id uuid.UUID) error {
	if err := checkContext(ctx, "admin user deletion"); err != nil {
		return err
	}
	if err := AuthorizeOperation(claims, OpAdminUsersManage); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.users.Delete(ctx, id); err != nil {
		return err
	}

	d.committed(ctx, claims, ActivityEventAdminDeleted, DirectoryChangeDeleted, nil, id, d.now().UTC())
	return nil
}

func (d *AdminDirectory) ensureEmailAvailable(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		if HasTextCode(err, TextCodeAdminUserNotFound) {
			return nil
		}
		return wrapInternal(err, "could not check email")
	}
	if existing.ID == self {
		return nil
	}
	return withMetadata(ErrEmailConflict, map[string]any{"email": email})
}

func (d *AdminDirectory) committed(ctx context.Context, claims AuthClaims, activity ActivityEventType, change DirectoryChangeType, record *AdminUser, id uuid.UUID, at time.Time) {
	recordActivity(ctx, d.activitySink, d.logger, d.now, ActivityEvent{
		EventType: activity,
		Actor:     ActorFromClaims(claims),
		ObjectID:  id.String(),
	})
	d.publisher.Publish(ctx, NewDirectoryEvent(change, record, id.String(), at))
}
