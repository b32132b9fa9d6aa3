package policy

import (
	"net/http"
	"testing"

	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPolicyAllow(t *testing.T) {
	admin := Caller{ID: 1, Username: "root", Role: domain.RoleAdmin, Authenticated: true}
	user := Caller{ID: 2, Username: "clerk", Role: domain.RoleUser, Authenticated: true}

	tests := []struct {
		name   string
		policy Policy
		caller Caller
		write  bool
		want   bool
	}{
		{"admin-only admin read", AdminOnly, admin, false, true},
		{"admin-only admin write", AdminOnly, admin, true, true},
		{"admin-only user read", AdminOnly, user, false, false},
		{"admin-only user write", AdminOnly, user, true, false},
		{"admin-only anonymous read", AdminOnly, Anonymous, false, false},
		{"admin-only anonymous write", AdminOnly, Anonymous, true, false},

		{"mixed admin read", AdminWriteAnyRead, admin, false, true},
		{"mixed admin write", AdminWriteAnyRead, admin, true, true},
		{"mixed user read", AdminWriteAnyRead, user, false, true},
		{"mixed user write", AdminWriteAnyRead, user, true, false},
		{"mixed anonymous read", AdminWriteAnyRead, Anonymous, false, false},
		{"mixed anonymous write", AdminWriteAnyRead, Anonymous, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Allow(tt.caller, tt.write))
		})
	}
}

func TestPolicyAllowRoleCaseInsensitive(t *testing.T) {
	caller := Caller{ID: 3, Role: "Admin", Authenticated: true}
	assert.True(t, AdminOnly.Allow(caller, true))
}

func TestIsWriteMethod(t *testing.T) {
	assert.False(t, IsWriteMethod(http.MethodGet))
	assert.False(t, IsWriteMethod(http.MethodHead))
	assert.False(t, IsWriteMethod(http.MethodOptions))
	assert.True(t, IsWriteMethod(http.MethodPost))
	assert.True(t, IsWriteMethod(http.MethodPut))
	assert.True(t, IsWriteMethod(http.MethodPatch))
	assert.True(t, IsWriteMethod(http.MethodDelete))
}
