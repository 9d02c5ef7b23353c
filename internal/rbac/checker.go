package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions against a compiled role policy.
type Checker struct {
	all      map[string]bool
	exact    map[string]map[string]bool
	prefixes map[string][]string
}

// NewChecker compiles policy. Entries are exact permissions, "*" or a prefix
// wildcard like "bank:*". A nil policy means RolePermissions.
func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	c := &Checker{
		all:      make(map[string]bool),
		exact:    make(map[string]map[string]bool, len(policy)),
		prefixes: make(map[string][]string),
	}
	for role, perms := range policy {
		set := make(map[string]bool, len(perms))
		for _, p := range perms {
			switch {
			case p == "*":
				c.all[role] = true
			case strings.HasSuffix(p, "*"):
				c.prefixes[role] = append(c.prefixes[role], strings.TrimSuffix(p, "*"))
			default:
				set[p] = true
			}
		}
		c.exact[role] = set
	}
	return c
}

func (c *Checker) Has(role, perm string) bool {
	if c.all[role] || c.exact[role][perm] {
		return true
	}
	for _, pre := range c.prefixes[role] {
		if strings.HasPrefix(perm, pre) {
			return true
		}
	}
	return false
}

// Any reports whether role holds at least one of perms.
func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
