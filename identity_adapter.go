package approvals

// RequesterIdentity adapts a RequesterAccount into the Identity interface for token generation.
type RequesterIdentity struct {
	account *RequesterAccount
}

// NewIdentityFromRequester returns an Identity adapter for the provided account.
func NewIdentityFromRequester(account *RequesterAccount) Identity {
	if account == nil {
		return nil
	}
	return RequesterIdentity{account: account}
}

// ID returns the account ID as a string.
func (r RequesterIdentity) ID() string {
	if r.account == nil {
		return ""
	}
	return r.account.ID.String()
}

// Email returns the account email address.
func (r RequesterIdentity) Email() string {
	if r.account == nil {
		return ""
	}
	return r.account.Email
}

// Role is always empty, requesters have no role bucket.
func (r RequesterIdentity) Role() string {
	return ""
}

// SubjectType returns SubjectUser.
func (r RequesterIdentity) SubjectType() SubjectType {
	return SubjectUser
}

// AdminIdentity adapts an AdminUser into the Identity interface.
type AdminIdentity struct {
	admin *AdminUser
}

// NewIdentityFromAdmin returns an Identity adapter for the provided admin.
func NewIdentityFromAdmin(admin *AdminUser) Identity {
	if admin == nil {
		return nil
	}
	return AdminIdentity{admin: admin}
}

// ID returns the admin ID as a string.
func (a AdminIdentity) ID() string {
	if a.admin == nil {
		return ""
	}
	return a.admin.ID.String()
}

// Email returns the admin email address.
func (a AdminIdentity) Email() string {
	if a.admin == nil {
		return ""
	}
	return a.admin.Email
}

// Role returns the admin role as a string.
func (a AdminIdentity) Role() string {
	if a.admin == nil {
		return ""
	}
	return string(a.admin.Role)
}

// SubjectType returns SubjectAdmin.
func (a AdminIdentity) SubjectType() SubjectType {
	return SubjectAdmin
}

// Account returns a detached copy of the wrapped requester
func (r RequesterIdentity) Account() *RequesterAccount {
	return r.account.Clone()
}

// Admin returns a detached copy of the wrapped admin
func (a AdminIdentity) Admin() *AdminUser {
	return a.admin.Clone()
}
