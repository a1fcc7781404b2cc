package booking

import "fmt"

// State is the booking lifecycle. Failed is reachable from every state and means the
// transaction was rolled back.
type State int

const (
	StateDraft State = iota
	StateCustomerResolved
	StateLinesBuilt
	StatePromotionsProcessed
	StateTotalsReconciled
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDraft:
		return "Draft"
	case StateCustomerResolved:
		return "CustomerResolved"
	case StateLinesBuilt:
		return "LinesBuilt"
	case StatePromotionsProcessed:
		return "PromotionsProcessed"
	case StateTotalsReconciled:
		return "TotalsReconciled"
	case StateCommitted:
		return "Committed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// machine enforces the forward-only order of states.
type machine struct {
	state State
}

func (m *machine) advance(to State) error {
	if m.state == StateFailed || m.state == StateCommitted {
		return fmt.Errorf("booking already %s", m.state)
	}
	if to != StateFailed && to != m.state+1 {
		return fmt.Errorf("illegal booking transition %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}

func (m *machine) fail() {
	m.state = StateFailed
}
