package domain

// Requester is the authenticated caller as seen by business rules.
type Requester struct {
	UserID string
	Role   string

	// CanOverrideHistoryLock is derived from the role and any explicit grant.
	CanOverrideHistoryLock bool
}

// Access is the resolved identity every organization-scoped operation runs under.
type Access struct {
	OrganizationID string
	UserID         string
	Requester      Requester
}
