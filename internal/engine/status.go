package engine

import "time"

// State enumerates the engine's build/reconciliation lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoadingIndex
	StateReconciling
	StateDiscovering
	StateIndexing
	StateResolvingImports
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingIndex:
		return "loading_index"
	case StateReconciling:
		return "reconciling"
	case StateDiscovering:
		return "discovering"
	case StateIndexing:
		return "indexing"
	case StateResolvingImports:
		return "resolving_imports"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time progress snapshot.
type Status struct {
	State          State
	FilesDiscovered int
	FilesIndexed    int
	Batch           int
	TotalBatches    int
	CurrentPath     string
	StartedAt       time.Time
	Errors          int
	Message         string
}

// Status returns a copy of the engine's current progress snapshot.
func (e *Engine) Status() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status
}

func (e *Engine) setState(s State, message string) {
	e.statusMu.Lock()
	e.status.State = s
	e.status.Message = message
	if s == StateDiscovering && e.status.StartedAt.IsZero() {
		e.status.StartedAt = time.Now()
	}
	e.statusMu.Unlock()
}

func (e *Engine) addDiscovered(n int) {
	e.statusMu.Lock()
	e.status.FilesDiscovered += n
	e.statusMu.Unlock()
}

func (e *Engine) addIndexed(n int) {
	e.statusMu.Lock()
	e.status.FilesIndexed += n
	e.statusMu.Unlock()
}

func (e *Engine) addError() {
	e.statusMu.Lock()
	e.status.Errors++
	e.statusMu.Unlock()
}

func (e *Engine) setBatch(batch, total int) {
	e.statusMu.Lock()
	e.status.Batch = batch
	e.status.TotalBatches = total
	e.statusMu.Unlock()
}

func (e *Engine) setCurrentPath(path string) {
	e.statusMu.Lock()
	e.status.CurrentPath = path
	e.statusMu.Unlock()
}

// ElapsedSeconds reports how long the current or most recent build has
// been running.
func (s Status) ElapsedSeconds() float64 {
	if s.StartedAt.IsZero() {
		return 0
	}
	return time.Since(s.StartedAt).Seconds()
}
