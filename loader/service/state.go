package service

import "fmt"

// State is a stage of an ingestion run. Runs only move forward.
type State int

const (
	StateLoading State = iota
	StateChunking
	StateEmbedding
	StateIndexEnsured
	StateStoring
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateChunking:
		return "chunking"
	case StateEmbedding:
		return "embedding"
	case StateIndexEnsured:
		return "index_ensured"
	case StateStoring:
		return "storing"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateError records the state an ingestion run failed in.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("ingestion failed while %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }
