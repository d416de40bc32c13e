package authorize

import (
	"net/http"
	"strconv"
	"strings"

	"slotwise/backend/internal/domain"
)

// Identity headers forwarded by the fronting gateway after authentication.
const (
	HeaderOrganizationID  = "X-Organization-ID"
	HeaderUserID          = "X-User-ID"
	HeaderUserRole        = "X-User-Role"
	HeaderHistoryOverride = "X-History-Override"
)

// HeaderResolver builds the caller's access from gateway headers and checks
// it against the role policy.
type HeaderResolver struct {
	policy *Policy
}

func NewHeaderResolver(policy *Policy) *HeaderResolver {
	return &HeaderResolver{policy: policy}
}

func (h *HeaderResolver) RequireAccess(r *http.Request, perm Permission) (domain.Access, error) {
	org := strings.TrimSpace(r.Header.Get(HeaderOrganizationID))
	user := strings.TrimSpace(r.Header.Get(HeaderUserID))
	role := Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
	if org == "" || user == "" || role == "" {
		return domain.Access{}, ErrUnauthenticated
	}

	if err := h.policy.Require(role, perm); err != nil {
		return domain.Access{}, err
	}

	canOverride, err := h.policy.Allowed(role, OverrideHistoryLock)
	if err != nil {
		return domain.Access{}, err
	}
	if !canOverride {
		// An explicit per-user grant from the gateway.
		canOverride, _ = strconv.ParseBool(strings.TrimSpace(r.Header.Get(HeaderHistoryOverride)))
	}

	return domain.Access{
		OrganizationID: org,
		UserID:         user,
		Requester: domain.Requester{
			UserID:                 user,
			Role:                   string(role),
			CanOverrideHistoryLock: canOverride,
		},
	}, nil
}
