package orders

import (
	"github.com/duongph/go-order-fulfillment/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusShipping  Status = "shipping"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Level orders statuses for the "no going backwards" rule; cancellation is
// the one lateral edge and is encoded explicitly in the table below.
func (s Status) Level() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPreparing:
		return 1
	case StatusShipping:
		return 2
	case StatusDelivered:
		return 3
	case StatusCancelled:
		return 4
	}
	return -1
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPreparing, StatusShipping, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unknown status %q", s)
}

type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleStaff   Role = "staff"
	RoleCourier Role = "courier"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBuyer, RoleStaff, RoleCourier:
		return Role(s), nil
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unknown actor role %q", s)
}

type edge struct {
	actors       []Role
	needsCourier bool
	needsReason  bool
}

func (e edge) allows(r Role) bool {
	for _, a := range e.actors {
		if a == r {
			return true
		}
	}
	return false
}

var validNext = map[Status]map[Status]edge{
	StatusPending: {
		StatusPreparing: {actors: []Role{RoleStaff}},
		StatusCancelled: {actors: []Role{RoleStaff, RoleBuyer}, needsReason: true},
	},
	StatusPreparing: {
		StatusShipping:  {actors: []Role{RoleStaff}, needsCourier: true},
		StatusCancelled: {actors: []Role{RoleStaff, RoleBuyer}, needsReason: true},
	},
	StatusShipping: {
		StatusDelivered: {actors: []Role{RoleCourier}},
		StatusCancelled: {actors: []Role{RoleCourier}, needsReason: true},
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	_, ok := validNext[from][to]
	return ok
}

// CheckTransition validates one edge of the state machine: reachability,
// actor authorization, then guard fields, in that order.
func CheckTransition(from, to Status, actor Role, courierID, reason string) error {
	if from.Terminal() {
		return apperr.Newf(apperr.CodeInvalidTransition, "order is %s, no further transition allowed", from)
	}
	e, ok := validNext[from][to]
	if !ok {
		return apperr.Newf(apperr.CodeInvalidTransition, "cannot move from %s to %s", from, to)
	}
	if !e.allows(actor) {
		return apperr.Newf(apperr.CodeUnauthorized, "%s may not move an order from %s to %s", actor, from, to)
	}
	if e.needsCourier && courierID == "" {
		return apperr.New(apperr.CodeInvalidTransition, "courier required")
	}
	if e.needsReason && reason == "" {
		return apperr.New(apperr.CodeInvalidTransition, "cancellation reason required")
	}
	return nil
}
