package tenant

import (
	"context"
	"errors"
)

type contextKey string

const principalKey contextKey = "principal"

// Role of an authenticated caller
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleOwner    Role = "owner"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleOwner:
		return true
	}
	return false
}

var (
	ErrMissingPrincipal   = errors.New("authenticated principal is required")
	ErrUnauthorizedAccess = errors.New("unauthorized access to company resource")
	ErrMissingCompanyID   = errors.New("companyId is required for this role")
)

// Context identifies who is calling and which company they act for.
// Warehouse staff and owners always belong to exactly one company; customers
// may have none.
type Context struct {
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
	CompanyID string `json:"companyId,omitempty"`
	Email     string `json:"email,omitempty"`
}

// FromContext extracts the caller from ctx
func FromContext(ctx context.Context) (*Context, error) {
	tc, ok := ctx.Value(principalKey).(*Context)
	if !ok || tc == nil {
		return nil, ErrMissingPrincipal
	}
	return tc, nil
}

// ToContext attaches the caller to ctx
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	return context.WithValue(ctx, principalKey, tc)
}

// IsStaff reports whether the caller operates warehouses (staff or owner)
func (tc *Context) IsStaff() bool {
	return tc.Role == RoleStaff || tc.Role == RoleOwner
}

// IsAnonymous reports whether no user is attached
func (tc *Context) IsAnonymous() bool {
	return tc.UserID == ""
}

// Validate checks role specific requirements
func (tc *Context) Validate() error {
	if tc.UserID == "" {
		return ErrMissingPrincipal
	}
	if tc.IsStaff() && tc.CompanyID == "" {
		return ErrMissingCompanyID
	}
	return nil
}

// ValidateOwnership verifies that a warehouse owned by resourceCompanyID may be
// operated by this caller. Customers never pass.
func (tc *Context) ValidateOwnership(resourceCompanyID string) error {
	if !tc.IsStaff() {
		return ErrUnauthorizedAccess
	}
	if tc.CompanyID == "" || tc.CompanyID != resourceCompanyID {
		return ErrUnauthorizedAccess
	}
	return nil
}
