package search

import "github.com/poiesic/refscan/core"

// State is a phase of a search.
type State string

const (
	StateCollecting       State = "collecting"
	StateMerging          State = "merging"
	StateResolving        State = "resolving"
	StateScanning         State = "scanning"
	StateDraining         State = "draining"
	StateDone             State = "done"
	StateCancelled        State = "cancelled"
	// StateIndexUnavailable ends a search whose word index stayed not ready.
	StateIndexUnavailable State = "index-unavailable"
	// StateFailed ends a search on any other error, including a handler
	// panic that propagated to the caller.
	StateFailed           State = "failed"
)

// SearchMonitor provides hooks to observe the search process.
// DocumentScanned and DocumentSkipped are called from worker goroutines, so
// implementations must be safe for concurrent use.
type SearchMonitor interface {
	Start()
	EnterState(state State)
	AfterResolve(priority, rest int)
	DocumentScanned(id core.DocumentID, progress int64)
	DocumentSkipped(id core.DocumentID, err error)
	Finish(completed bool, err error)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start()                                    {}
func (n *noopMonitor) EnterState(_ State)                        {}
func (n *noopMonitor) AfterResolve(_, _ int)                     {}
func (n *noopMonitor) DocumentScanned(_ core.DocumentID, _ int64) {}
func (n *noopMonitor) DocumentSkipped(_ core.DocumentID, _ error) {}
func (n *noopMonitor) Finish(_ bool, _ error)                    {}
