package approvals

// Operation names a protected action
type Operation string

const (
	OpTasksListOwn     Operation = "tasks:list-own"
	OpTasksCreate      Operation = "tasks:create"
	OpTasksListAll     Operation = "tasks:list-all"
	OpTasksReview      Operation = "tasks:review"
	OpAdminUsersList   Operation = "admin-users:list"
	OpAdminUsersManage Operation = "admin-users:manage"
	OpSessionRead      Operation = "session:read"
	OpEventsSubscribe  Operation = "events:subscribe"
)

// Requirement is what a claim set must satisfy for an operation.
// An empty Subject accepts either session kind, empty Roles accepts any
// admin role.
type Requirement struct {
	Subject SubjectType
	Roles   []AdminRole
}

var operationRequirements = map[Operation]Requirement{
	OpTasksListOwn:     {Subject: SubjectUser},
	OpTasksCreate:      {Subject: SubjectUser},
	OpTasksListAll:     {Subject: SubjectAdmin},
	OpTasksReview:      {Subject: SubjectAdmin, Roles: []AdminRole{RoleAdmin, RoleModerator}},
	OpAdminUsersList:   {Subject: SubjectAdmin},
	OpAdminUsersManage: {Subject: SubjectAdmin, Roles: []AdminRole{RoleAdmin}},
	OpSessionRead:      {},
	OpEventsSubscribe:  {},
}

// RequirementFor returns the requirement registered for op
func RequirementFor(op Operation) (Requirement, bool) {
	req, ok := operationRequirements[op]
	return req, ok
}

// Authorize checks claims against a subject type and an optional role list.
func Authorize(claims AuthClaims, subject SubjectType, allowedRoles ...AdminRole) error {
	if claims == nil {
		return ErrUnauthenticated
	}

	if subject != "" && claims.SubjectType() != subject {
		return withMetadata(ErrWrongSubjectType, map[string]any{
			"expected": subject,
			"actual":   claims.SubjectType(),
		})
	}

	if claims.SubjectType() != SubjectAdmin {
		return nil
	}

	role := claims.AdminRole()
	if !role.IsValid() {
		return withMetadata(ErrForbidden, map[string]any{"role": role})
	}

	if len(allowedRoles) == 0 {
		return nil
	}

	for _, allowed := range allowedRoles {
		if role == allowed {
			return nil
		}
	}

	return withMetadata(ErrForbidden, map[string]any{
		"role":    role,
		"allowed": allowedRoles,
	})
}

// AuthorizeOperation checks claims against the registered requirement of op.
// Unknown operations are always denied.
func AuthorizeOperation(claims AuthClaims, op Operation) error {
	req, ok := operationRequirements[op]
	if !ok {
		return withMetadata(ErrForbidden, map[string]any{"operation": op})
	}
	if err := Authorize(claims, req.Subject, req.Roles...); err != nil {
		return err
	}
	return nil
}
