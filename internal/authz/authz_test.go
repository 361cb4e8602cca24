package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	cases := []struct {
		name  string
		roles []string
		path  string
		want  bool
	}{
		{"admin reaches admin", []string{"ROLE_ADMIN"}, "/admin/articles/3/edit", true},
		{"admin root", []string{"ROLE_ADMIN"}, "/admin", true},
		{"admin inherits user", []string{"ROLE_ADMIN"}, "/profile", true},
		{"user blocked from admin", []string{"ROLE_USER"}, "/admin/media", false},
		{"user reaches profile", []string{"ROLE_USER"}, "/profile/edit", true},
		{"user reaches dashboard", []string{"ROLE_USER"}, "/dashboard", true},
		{"no roles", nil, "/dashboard", false},
		{"prefix lookalike", []string{"ROLE_USER"}, "/administrator", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Allowed(tc.roles, tc.path, "POST")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProtected(t *testing.T) {
	e, err := NewEnforcer()
	require.NoError(t, err)

	for path, want := range map[string]bool{
		"/admin/tags": true,
		"/profile":    true,
		"/blog":       false,
		"/":           false,
	} {
		got, err := e.Protected(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
}
