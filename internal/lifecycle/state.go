// Package lifecycle derives what a user may do with a rental contract and
// drives the multi-step actions (sign, handover, return, review) against the
// rental API and the wallet.
package lifecycle

import (
	"vcar-client/internal/domain"
)

type State string

const (
	StateUnknown              State = "UNKNOWN"
	StateAwaitingSignature    State = "AWAITING_SIGNATURE"
	StateAwaitingHandover     State = "AWAITING_HANDOVER"
	StateInProgress           State = "IN_PROGRESS"
	StateAwaitingReturnReview State = "AWAITING_RETURN_REVIEW"
	StateCanceled             State = "CANCELED"
)

type Action string

const (
	ActionSign            Action = "sign"
	ActionViewContract    Action = "view-contract"
	ActionViewHandover    Action = "view-handover"
	ActionApproveHandover Action = "approve-handover"
	ActionReturn          Action = "return"
	ActionReview          Action = "review"
	ActionCreateHandover  Action = "create-handover"
	ActionApproveReturn   Action = "approve-return"
)

// Perspective is the side of the contract the session user is on.
type Perspective string

const (
	PerspectiveLessee Perspective = "lessee"
	PerspectiveLessor Perspective = "lessor"
)

// PerspectiveFor returns the lessor perspective when userID owns the vehicle
// and the lessee perspective otherwise.
func PerspectiveFor(c *domain.Contract, userID string) Perspective {
	if c != nil && userID != "" && c.LessorID == userID {
		return PerspectiveLessor
	}
	return PerspectiveLessee
}

// Derive maps the server's contract and handover records to a lifecycle
// state and the actions offered from it. h is ignored unless the contract is
// signed. The returned slice is freshly allocated.
func Derive(c *domain.Contract, h *domain.VehicleHandover, p Perspective) (State, []Action) {
	state := deriveState(c, h)
	if !c.IsSigned() {
		h = nil
	}
	if p == PerspectiveLessor {
		return state, lessorActions(state, h)
	}
	return state, lesseeActions(state, h)
}

func deriveState(c *domain.Contract, h *domain.VehicleHandover) State {
	if c == nil {
		return StateUnknown
	}
	switch c.Status {
	case domain.ContractStatusPending:
		return StateAwaitingSignature
	case domain.ContractStatusCanceled:
		return StateCanceled
	case domain.ContractStatusSigned:
	default:
		return StateUnknown
	}

	if h == nil {
		return StateAwaitingHandover
	}
	switch h.Status {
	case domain.HandoverStatusRending:
		return StateInProgress
	case domain.HandoverStatusReturning, domain.HandoverStatusReturned:
		return StateAwaitingReturnReview
	default:
		return StateAwaitingHandover
	}
}

func lesseeActions(s State, h *domain.VehicleHandover) []Action {
	switch s {
	case StateAwaitingSignature:
		return []Action{ActionSign}
	case StateAwaitingHandover:
		if h == nil {
			return []Action{ActionViewContract}
		}
		actions := []Action{ActionViewContract, ActionViewHandover}
		if !h.LesseeApproved {
			actions = append(actions, ActionApproveHandover)
		}
		return actions
	case StateInProgress:
		return []Action{ActionViewContract, ActionViewHandover, ActionReturn}
	case StateAwaitingReturnReview:
		return []Action{ActionViewContract, ActionViewHandover, ActionReview}
	case StateCanceled:
		return []Action{ActionViewContract}
	}
	return nil
}

func lessorActions(s State, h *domain.VehicleHandover) []Action {
	switch s {
	case StateAwaitingSignature, StateCanceled:
		return []Action{ActionViewContract}
	case StateAwaitingHandover:
		if h == nil {
			return []Action{ActionViewContract, ActionCreateHandover}
		}
		return []Action{ActionViewContract, ActionViewHandover}
	case StateInProgress:
		return []Action{ActionViewContract, ActionViewHandover}
	case StateAwaitingReturnReview:
		if h.Status == domain.HandoverStatusReturning && !h.LessorApproved {
			return []Action{ActionViewContract, ActionViewHandover, ActionApproveReturn}
		}
		return []Action{ActionViewContract, ActionViewHandover}
	}
	return nil
}

func offers(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
