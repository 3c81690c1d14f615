// Package authz evaluates every ownership and role rule through one casbin enforcer.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Principal is the acting user. Every service operation receives one explicitly.
type Principal struct {
	ID   string
	Role string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Resource is the entity instance under evaluation. Owner is empty for type-level checks.
type Resource struct {
	Type  string
	Owner string
}

const modelText = `
[request_definition]
r = sub, role, owner, obj, act

[policy_definition]
p = role, obj, act, rule

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.role == p.role && keyMatch(r.obj, p.obj) && regexMatch(r.act, p.act) && (p.rule == "any" || r.sub == r.owner)
`

// DefaultPolicies: admins may do anything; users own their files, histories and
// records, read the shared catalogue and manage their own account.
var DefaultPolicies = [][]string{
	{RoleAdmin, "*", ".*", "any"},
	{RoleUser, "file", ".*", "own"},
	{RoleUser, "history", ".*", "own"},
	{RoleUser, "record", ".*", "own"},
	{RoleUser, "prompt", "^(read|list)$", "any"},
	{RoleUser, "model", "^(read|list)$", "any"},
	{RoleUser, "filter", "^(read|list)$", "any"},
	{RoleUser, "user", "^(read|update)$", "own"},
}

type Authorizer interface {
	Allowed(p Principal, res Resource, act Action) bool
	// ListScope reports whether p may list type at all, and if so whether
	// results must be narrowed to documents p owns.
	ListScope(p Principal, resourceType string) (allowed bool, ownOnly bool)
}

type casbinAuthorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer(policies [][]string) (Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	if _, err := e.AddPolicies(policies); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	return &casbinAuthorizer{enforcer: e}, nil
}

func (a *casbinAuthorizer) Allowed(p Principal, res Resource, act Action) bool {
	if p.ID == "" {
		return false
	}
	ok, err := a.enforcer.Enforce(p.ID, p.Role, res.Owner, res.Type, string(act))
	return err == nil && ok
}

func (a *casbinAuthorizer) ListScope(p Principal, resourceType string) (bool, bool) {
	if a.Allowed(p, Resource{Type: resourceType}, ActionList) {
		return true, false
	}
	if a.Allowed(p, Resource{Type: resourceType, Owner: p.ID}, ActionList) {
		return true, true
	}
	return false, false
}
