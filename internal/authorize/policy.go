package authorize

import (
	"errors"
	"fmt"
	"strings"

	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleViewer  Role = "viewer"
)

// Permission is an object/action pair checked against the role policy.
type Permission struct {
	Object string
	Action string
}

func (p Permission) String() string { return p.Object + ":" + p.Action }

var (
	ReadSchedules  = Permission{Object: "schedules", Action: "read"}
	WriteSchedules = Permission{Object: "schedules", Action: "write"}
	ReadBreaks     = Permission{Object: "breaks", Action: "read"}
	WriteBreaks    = Permission{Object: "breaks", Action: "write"}
	ReadSettings   = Permission{Object: "settings", Action: "read"}
	WriteSettings  = Permission{Object: "settings", Action: "write"}
	ReadDirectory  = Permission{Object: "directory", Action: "read"}

	// OverrideHistoryLock lets a role edit appointments inside the history lock window.
	OverrideHistoryLock = Permission{Object: "history", Action: "override"}
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// builtinPolicy grants each role its own permissions; the grouping rules
// make every role inherit everything below it.
var builtinPolicy = [][]string{
	{string(RoleViewer), "schedules", "read"},
	{string(RoleViewer), "breaks", "read"},
	{string(RoleViewer), "settings", "read"},
	{string(RoleViewer), "directory", "read"},
	{string(RoleStaff), "schedules", "write"},
	{string(RoleManager), "breaks", "write"},
	{string(RoleAdmin), "settings", "write"},
	{string(RoleAdmin), "history", "override"},
	{string(RoleOwner), "*", "*"},
}

var builtinGroups = [][]string{
	{string(RoleOwner), string(RoleAdmin)},
	{string(RoleAdmin), string(RoleManager)},
	{string(RoleManager), string(RoleStaff)},
	{string(RoleStaff), string(RoleViewer)},
}

// Policy answers role permission questions with a casbin RBAC enforcer.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if _, err := e.AddPolicies(builtinPolicy); err != nil {
		return nil, fmt.Errorf("add policies: %w", err)
	}
	if _, err := e.AddGroupingPolicies(builtinGroups); err != nil {
		return nil, fmt.Errorf("add role hierarchy: %w", err)
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role Role, perm Permission) (bool, error) {
	r := Role(strings.ToLower(strings.TrimSpace(string(role))))
	if r == "" {
		return false, nil
	}
	return p.enforcer.Enforce(string(r), perm.Object, perm.Action)
}

// Require returns ErrForbidden when role lacks perm.
func (p *Policy) Require(role Role, perm Permission) error {
	ok, err := p.Allowed(role, perm)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: role %q lacks %s", ErrForbidden, role, perm)
	}
	return nil
}
