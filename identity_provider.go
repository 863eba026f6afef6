package approvals

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// IdentityProvider resolves and verifies the accounts behind one subject type
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// RequesterProvider verifies requester credentials
type RequesterProvider struct {
	store  Requesters
	hasher PasswordAuthenticator
}

// NewRequesterProvider will create a new RequesterProvider
func NewRequesterProvider(store Requesters, hasher PasswordAuthenticator) *RequesterProvider {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &RequesterProvider{store: store, hasher: hasher}
}

// VerifyIdentity will find the account, compare to the password, and return identity.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (p *RequesterProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	account, err := p.store.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) || HasTextCode(err, TextCodeRequesterNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve requester during verification")
	}

	if err := p.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return NewIdentityFromRequester(account), nil
}

// FindIdentityByIdentifier looks an account up by id or email
func (p *RequesterProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var account *RequesterAccount
	var err error
	if id, perr := uuid.Parse(identifier); perr == nil {
		account, err = p.store.GetByID(ctx, id)
	} else {
		account, err = p.store.GetByEmail(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	return NewIdentityFromRequester(account), nil
}

// AdminProvider verifies admin directory credentials
type AdminProvider struct {
	store  AdminUsers
	hasher PasswordAuthenticator
}

// NewAdminProvider will create a new AdminProvider
func NewAdminProvider(store AdminUsers, hasher PasswordAuthenticator) *AdminProvider {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &AdminProvider{store: store, hasher: hasher}
}

// VerifyIdentity will find the admin, compare to the password, and return identity
func (p *AdminProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	admin, err := p.store.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) || HasTextCode(err, TextCodeAdminUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve admin during verification")
	}

	if err := p.hasher.ComparePasswordAndHash(password, admin.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return NewIdentityFromAdmin(admin), nil
}

// FindIdentityByIdentifier looks an admin up by id or email
func (p *AdminProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var admin *AdminUser
	var err error
	if id, perr := uuid.Parse(identifier); perr == nil {
		admin, err = p.store.GetByID(ctx, id)
	} else {
		admin, err = p.store.GetByEmail(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	return NewIdentityFromAdmin(admin), nil
}
