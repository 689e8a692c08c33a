package model

// Role is the permission level of the acting user. How a session proves
// its identity is outside this module; handlers receive the role from the
// identity middleware and pass it to the permission gate.
type Role string

const (
	// RoleAdmin may perform any transition the state machine allows.
	RoleAdmin Role = "admin"
	// RoleOperator is restricted: it may only settle a pending sale
	// (PENDING_PAYMENT → PAID_CASH).
	RoleOperator Role = "operator"
)
