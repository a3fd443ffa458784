package models

// OrderStatus is the closed set of order lifecycle states. The exact
// strings are part of the external contract and must not change.
type OrderStatus string

const (
	StatusRequested  OrderStatus = "Requested"
	StatusApproved   OrderStatus = "Approved"
	StatusRejected   OrderStatus = "Rejected"
	StatusPaid       OrderStatus = "Paid"
	StatusDispatched OrderStatus = "Dispatched"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Role identifies which side of the marketplace an actor is on. RoleSystem
// is reserved for automatic delivery confirmation.
type Role string

const (
	RoleVendor   Role = "vendor"
	RoleSupplier Role = "supplier"
	RoleSystem   Role = "system"
)

// ParseOrderStatus validates a status string from the boundary.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case StatusRequested, StatusApproved, StatusRejected,
		StatusPaid, StatusDispatched, StatusDelivered, StatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// ParseRole validates a role string from the boundary.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleVendor, RoleSupplier, RoleSystem:
		return Role(s), true
	}
	return "", false
}

type transitionEdge struct {
	From OrderStatus
	To   OrderStatus
}

// allowedTransitions is the forward-only edge table. Each edge maps to the
// roles permitted to drive it. Anything not in this table is invalid.
var allowedTransitions = map[transitionEdge][]Role{
	{StatusRequested, StatusApproved}:   {RoleSupplier},
	{StatusRequested, StatusRejected}:   {RoleSupplier},
	{StatusRequested, StatusCancelled}:  {RoleVendor},
	{StatusApproved, StatusCancelled}:   {RoleVendor},
	{StatusApproved, StatusPaid}:        {RoleVendor},
	{StatusPaid, StatusDispatched}:      {RoleSupplier},
	{StatusDispatched, StatusDelivered}: {RoleSupplier, RoleSystem},
}

// TransitionAllowed reports whether from→to is a legal edge at all.
func TransitionAllowed(from, to OrderStatus) bool {
	_, ok := allowedTransitions[transitionEdge{from, to}]
	return ok
}

// ActorAllowed reports whether role may drive the from→to edge.
func ActorAllowed(from, to OrderStatus, role Role) bool {
	roles, ok := allowedTransitions[transitionEdge{from, to}]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edge leaves the given status.
func (s OrderStatus) IsTerminal() bool {
	for edge := range allowedTransitions {
		if edge.From == s {
			return false
		}
	}
	return true
}

// IsPaid reports whether the status implies payment has been recorded.
// The order's payment_status flag must agree with this at all times.
func (s OrderStatus) IsPaid() bool {
	switch s {
	case StatusPaid, StatusDispatched, StatusDelivered:
		return true
	}
	return false
}

// Reviewable reports whether an order in this status accepts reviews.
func (s OrderStatus) Reviewable() bool {
	return s == StatusDispatched || s == StatusDelivered
}
