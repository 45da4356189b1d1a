package models

import "fmt"

// State is the position of an item in the per-run state machine.
type State string

const (
	StatePending       State = "PENDING"
	StateSkipped       State = "SKIPPED"
	StateChecking      State = "CHECKING_EXISTENCE"
	StateNotFound      State = "NOT_FOUND"
	StateForbidden     State = "FORBIDDEN"
	StateFound         State = "FOUND"
	StateTransferring  State = "TRANSFERRING"
	StateTransferFail  State = "TRANSFER_FAILED"
	StateTransferred   State = "TRANSFERRED"
	StateVerifying     State = "VERIFYING"
	StateIntegrityFail State = "FAILED_INTEGRITY"
	StateCompleted     State = "COMPLETED"
	StateFailed        State = "FAILED"
)

var allowedTransitions = map[State]map[State]bool{
	StatePending: {
		StateSkipped:      true,
		StateChecking:     true,
		StateTransferring: true,
		StateFailed:       true,
	},
	StateChecking: {
		StateNotFound:  true,
		StateForbidden: true,
		StateFound:     true,
		StateFailed:    true,
	},
	StateFound: {
		StateTransferring: true,
	},
	StateTransferring: {
		StateTransferFail: true,
		StateTransferred:  true,
	},
	StateTransferFail: {
		StateTransferring: true, // retryable
		StateFailed:       true,
	},
	StateTransferred: {
		StateVerifying: true,
	},
	StateVerifying: {
		StateIntegrityFail: true,
		StateCompleted:     true,
		StateFailed:        true,
	},
}

var terminalStates = map[State]bool{
	StateSkipped:       true,
	StateNotFound:      true,
	StateForbidden:     true,
	StateIntegrityFail: true,
	StateCompleted:     true,
	StateFailed:        true,
}

func CanTransition(from, to State) bool {
	return allowedTransitions[from][to]
}

// IsTerminal reports whether s ends processing of an item. FOUND is terminal
// only in check-only runs, which the caller decides.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// Item tracks one entry through the state machine.
type Item struct {
	Entry ManifestEntry
	State State
}

func NewItem(e ManifestEntry) *Item {
	return &Item{Entry: e, State: StatePending}
}

// Transition moves the item to the next state or reports an invalid move.
func (it *Item) Transition(to State) error {
	if !CanTransition(it.State, to) {
		return fmt.Errorf("invalid item state transition: %q -> %q (key=%s)", it.State, to, it.Entry.Key())
	}
	it.State = to
	return nil
}
