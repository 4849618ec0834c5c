package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableflow/order-service/internal/domain"
)

func TestDefaultRouteTableLookup(t *testing.T) {
	table := DefaultRouteTable()

	tests := []struct {
		path    string
		public  bool
		roles   []domain.Role
		matched bool
	}{
		{path: "/", public: true, matched: true},
		{path: "/login?next=/admin", public: true, matched: true},
		{path: "/orders", matched: true},
		{path: "/orders/123", matched: true},
		{path: "/orders/new", roles: []domain.Role{domain.RoleCustomer, domain.RoleSeller}, matched: true},
		{path: "/invoices/", roles: []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleSeller}, matched: true},
		{path: "/admin/users", roles: []domain.Role{domain.RoleAdmin}, matched: true},
		{path: "/administrator", matched: false},
		{path: "/unknown", matched: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, ok := table.Lookup(tt.path)
			require.Equal(t, tt.matched, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.public, req.Public)
			assert.ElementsMatch(t, tt.roles, req.AllowedRoles.Roles())
		})
	}
}
