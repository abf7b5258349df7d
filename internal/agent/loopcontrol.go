package agent

// LoopControl bounds the number of successful model-call cycles within one
// invocation. Only completed, successful reasoning steps consume budget;
// failed model calls are free because the provider already retried them.
type LoopControl struct {
	owner  string
	max    int
	count  int
	active bool
}

// DefaultMaxIterations applies when a worker is constructed without an
// explicit budget.
const DefaultMaxIterations = 7

// NewLoopControl creates a loop controller with the given budget.
func NewLoopControl(owner string, maxIterations int) *LoopControl {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &LoopControl{owner: owner, max: maxIterations}
}

// Iterations returns the count of successful model calls in the current or
// most recent invocation.
func (l *LoopControl) Iterations() int { return l.count }

// Max returns the configured budget.
func (l *LoopControl) Max() int { return l.max }

func (l *LoopControl) OnInvocationStart(owner string) {
	if l.active {
		panic("agent: OnInvocationStart called mid-invocation")
	}
	l.active = true
	l.count = 0
}

func (l *LoopControl) OnModelCallCompleted(succeeded bool) error {
	if !succeeded {
		return nil
	}
	l.count++
	if l.count >= l.max {
		return &LoopLimitError{Owner: l.owner, Iterations: l.count, Max: l.max}
	}
	return nil
}

func (l *LoopControl) OnToolCallStart(name string, args map[string]any) {}

func (l *LoopControl) OnToolCallCompleted(name string, result string, err error) {}

func (l *LoopControl) OnInvocationEnd() {
	l.active = false
}
