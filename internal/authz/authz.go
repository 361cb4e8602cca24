// Package authz decides which roles may reach which routes.
package authz

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"

	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
)

//go:embed model.conf policy.csv
var embedFS embed.FS

// Enforcer checks route access for a set of user roles.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer loads the embedded model and policy.
func NewEnforcer() (*Enforcer, error) {
	dir, err := os.MkdirTemp("", "bunpress-casbin-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := writeEmbedToDir(dir, "model.conf", "policy.csv"); err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(filepath.Join(dir, "model.conf"), filepath.Join(dir, "policy.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	return &Enforcer{e: e}, nil
}

func writeEmbedToDir(dir string, names ...string) error {
	for _, name := range names {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			return err
		}
	}
	return nil
}

// Allowed reports whether any of roles may perform method on path.
func (e *Enforcer) Allowed(roles []string, path, method string) (bool, error) {
	for _, role := range roles {
		ok, err := e.e.Enforce(role, path, method)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	logger.Debug("authz: access denied", "roles", roles, "path", path, "method", method)
	return false, nil
}

// Protected reports whether path is covered by any policy, meaning an
// anonymous visitor must log in first. ROLE_ADMIN inherits every other
// role, so its grants are the union of all policies.
func (e *Enforcer) Protected(path string) (bool, error) {
	return e.e.Enforce(models.RoleAdmin, path, "GET")
}
