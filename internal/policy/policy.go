package policy

import (
	"net/http"
	"strings"

	"github.com/stockpile-io/stockpile/internal/domain"
)

// Policy is a stateless role-and-verb authorization rule, evaluated once at
// the boundary before the guarded operation executes.
type Policy int

const (
	// AdminOnly allows authenticated admins, any verb. Guards sale routes
	// and the explicit stock-adjustment operation.
	AdminOnly Policy = iota

	// AdminWriteAnyRead allows any authenticated caller to read; mutations
	// require the admin role. Guards category and product routes.
	AdminWriteAnyRead
)

// Caller identifies the requester. Unauthenticated callers are denied by
// every policy regardless of verb.
type Caller struct {
	ID            int64
	Username      string
	Role          string
	Authenticated bool
}

// Anonymous is the caller value for requests without credentials.
var Anonymous = Caller{}

func (c Caller) IsAdmin() bool {
	return strings.EqualFold(c.Role, domain.RoleAdmin)
}

// Allow decides whether the caller may perform a write (mutating) or
// read-only operation under this policy.
func (p Policy) Allow(c Caller, write bool) bool {
	if !c.Authenticated {
		return false
	}
	switch p {
	case AdminOnly:
		return c.IsAdmin()
	case AdminWriteAnyRead:
		if !write {
			return true
		}
		return c.IsAdmin()
	default:
		return false
	}
}

// IsWriteMethod classifies an HTTP verb as mutating.
func IsWriteMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
