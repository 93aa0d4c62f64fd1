package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasPermission_DenyByDefault(t *testing.T) {
	e := NewEvaluator(DefaultTable())

	resources := []Resource{
		ResourceUsers, ResourceCustomers, ResourceProducts, ResourceOrders,
		ResourceProduction, ResourceInvoices, ResourceReports, ResourceSettings,
	}
	actions := []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

	for _, role := range []string{"", "user", "intern", "ADMIN"} {
		for _, res := range resources {
			for _, act := range actions {
				require.False(t, e.HasPermission(role, res, act),
					"role %q must be denied %s on %s", role, act, res)
			}
		}
	}
}

func TestHasPermission_UnknownResourceOrAction(t *testing.T) {
	e := NewEvaluator(DefaultTable())

	require.False(t, e.HasPermission("sales", Resource("warehouses"), ActionRead))
	require.False(t, e.HasPermission("sales", ResourceCustomers, Action("approve")))
}

func TestHasPermission_DefaultTable(t *testing.T) {
	e := NewEvaluator(DefaultTable())

	cases := []struct {
		role     string
		resource Resource
		action   Action
		want     bool
	}{
		{"admin", ResourceCustomers, ActionDelete, true},
		{"sales", ResourceCustomers, ActionDelete, false},
		{"production_manager", ResourceProduction, ActionCreate, true},
		{"sales", ResourceProduction, ActionCreate, false},
		{"admin", ResourceSettings, ActionRead, true},
		{"sales", ResourceSettings, ActionRead, false},
		{"production_manager", ResourceCustomers, ActionCreate, false},
		{"production_manager", ResourceProduction, ActionUpdate, true},
		{"sales", ResourceCustomers, ActionUpdate, true},
		{"sales", ResourceUsers, ActionRead, false},
		{"production_manager", ResourceOrders, ActionRead, true},
		{"production_manager", ResourceInvoices, ActionRead, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, e.HasPermission(tc.role, tc.resource, tc.action),
			"%s %s %s", tc.role, tc.action, tc.resource)
	}
}

func TestHasPermission_CustomTable(t *testing.T) {
	table := Table{
		"viewer": {
			ResourceReports: {ActionRead},
		},
	}
	e := NewEvaluator(table)

	require.True(t, e.HasPermission("viewer", ResourceReports, ActionRead))
	require.False(t, e.HasPermission("viewer", ResourceReports, ActionCreate))
	require.False(t, e.HasPermission("viewer", ResourceUsers, ActionRead))
}

func TestResources_CopiesActions(t *testing.T) {
	e := NewEvaluator(DefaultTable())

	perms := e.Resources("production_manager")
	require.ElementsMatch(t,
		[]Action{ActionCreate, ActionRead, ActionUpdate},
		perms[ResourceProduction])

	// Mutating the returned slice must not leak into the evaluator.
	perms[ResourceProduction][0] = ActionDelete
	require.False(t, e.HasPermission("production_manager", ResourceProduction, ActionDelete))

	require.Empty(t, e.Resources("nobody"))
}
