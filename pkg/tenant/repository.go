package tenant

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// RepositoryHelper scopes MongoDB queries to the caller's company.
// Embed it in repositories that serve staff views.
type RepositoryHelper struct {
	// EnforceTenant when true, returns an error if no caller is present
	EnforceTenant bool
}

// NewRepositoryHelper creates a new RepositoryHelper
func NewRepositoryHelper(enforceTenant bool) *RepositoryHelper {
	return &RepositoryHelper{EnforceTenant: enforceTenant}
}

// WithTenantFilter copies filter and adds the company (staff) or customer
// (customers) restriction taken from ctx.
func (h *RepositoryHelper) WithTenantFilter(ctx context.Context, filter bson.M) (bson.M, error) {
	tc, err := FromContext(ctx)
	if err != nil {
		if h.EnforceTenant {
			return nil, err
		}
		return filter, nil
	}

	scoped := bson.M{}
	for k, v := range filter {
		scoped[k] = v
	}

	switch {
	case tc.IsStaff():
		if tc.CompanyID == "" {
			return nil, ErrMissingCompanyID
		}
		scoped["companyId"] = tc.CompanyID
	case tc.Role == RoleCustomer:
		scoped["customerId"] = tc.UserID
	}

	return scoped, nil
}

// TenantIndexes returns index definitions backing the scoped queries
func TenantIndexes() []bson.D {
	return []bson.D{
		{{Key: "companyId", Value: 1}, {Key: "warehouseId", Value: 1}, {Key: "status", Value: 1}},
		{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}},
	}
}
