package service

import (
	"github.com/hzzxn/app-stock/internal/model"
)

// Gate decides whether an actor role may request a status transition.
// It only answers the permission question; whether the transition itself
// is legal is up to the state machine.
type Gate interface {
	CanTransition(role model.Role, from, to model.SaleStatus) bool
}

// RoleGate is the current permission rule: an operator may only settle a
// pending sale; an admin may request anything the transition table allows.
type RoleGate struct{}

func (RoleGate) CanTransition(role model.Role, from, to model.SaleStatus) bool {
	if role == model.RoleAdmin {
		return true
	}
	return from == model.StatusPendingPayment && to == model.StatusPaidCash
}
