package rbac

// Resource is a named business entity category subject to access control.
type Resource string

const (
	ResourceUsers      Resource = "users"
	ResourceCustomers  Resource = "customers"
	ResourceProducts   Resource = "products"
	ResourceOrders     Resource = "orders"
	ResourceProduction Resource = "production"
	ResourceInvoices   Resource = "invoices"
	ResourceReports    Resource = "reports"
	ResourceSettings   Resource = "settings"
)

// Action is the unit of permission granted per resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Table maps role -> resource -> allowed actions. A missing role or resource
// key means no permissions at all (deny-by-default).
type Table map[string]map[Resource][]Action

// Evaluator answers permission checks against an immutable Table. It holds
// everything in memory and performs no I/O, so a check is O(1), side-effect
// free and safe to call from any number of requests concurrently. The table
// must not be mutated after the evaluator is constructed.
type Evaluator struct {
	table Table
}

// NewEvaluator returns an Evaluator backed by the given table.
func NewEvaluator(table Table) *Evaluator {
	return &Evaluator{table: table}
}

// HasPermission reports whether role may perform action on resource.
// Unknown roles, resources or actions all degrade to false; this is a total
// function and never fails.
func (e *Evaluator) HasPermission(role string, resource Resource, action Action) bool {
	perms, ok := e.table[role]
	if !ok {
		return false
	}
	for _, a := range perms[resource] {
		if a == action {
			return true
		}
	}
	return false
}

// Resources lists the resources a role has at least one action on. Used by
// the /me endpoint so the frontend can hide menu entries it cannot open.
func (e *Evaluator) Resources(role string) map[Resource][]Action {
	perms, ok := e.table[role]
	if !ok {
		return map[Resource][]Action{}
	}
	out := make(map[Resource][]Action, len(perms))
	for res, actions := range perms {
		copied := make([]Action, len(actions))
		copy(copied, actions)
		out[res] = copied
	}
	return out
}

// Table returns a deep copy of the full permission table, keyed by role.
func (e *Evaluator) Table() Table {
	out := make(Table, len(e.table))
	for role := range e.table {
		out[role] = e.Resources(role)
	}
	return out
}

var allActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// DefaultTable builds the production permission table.
//
// admin holds every action on every resource. sales works customers, orders
// and invoices and can read products, production and reports. The production
// manager runs production and can read the order book, the product catalog
// and reports. users and settings stay admin-only.
func DefaultTable() Table {
	return Table{
		"admin": {
			ResourceUsers:      allActions,
			ResourceCustomers:  allActions,
			ResourceProducts:   allActions,
			ResourceOrders:     allActions,
			ResourceProduction: allActions,
			ResourceInvoices:   allActions,
			ResourceReports:    allActions,
			ResourceSettings:   allActions,
		},
		"sales": {
			ResourceCustomers:  {ActionCreate, ActionRead, ActionUpdate},
			ResourceProducts:   {ActionRead},
			ResourceOrders:     {ActionCreate, ActionRead, ActionUpdate},
			ResourceProduction: {ActionRead},
			ResourceInvoices:   {ActionCreate, ActionRead},
			ResourceReports:    {ActionRead},
		},
		"production_manager": {
			ResourceProducts:   {ActionRead},
			ResourceOrders:     {ActionRead},
			ResourceProduction: {ActionCreate, ActionRead, ActionUpdate},
			ResourceReports:    {ActionRead},
		},
	}
}
