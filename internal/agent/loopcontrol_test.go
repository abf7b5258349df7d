package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetExactness(t *testing.T) {
	lc := NewLoopControl("travel desk", 3)
	lc.OnInvocationStart("travel desk")

	require.NoError(t, lc.OnModelCallCompleted(true))
	require.NoError(t, lc.OnModelCallCompleted(true))

	err := lc.OnModelCallCompleted(true)
	var limit *LoopLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, "travel desk", limit.Owner)
	assert.Equal(t, 3, limit.Iterations)
	assert.Equal(t, 3, limit.Max)
}

func TestBudgetResetsAcrossInvocations(t *testing.T) {
	lc := NewLoopControl("travel desk", 3)

	lc.OnInvocationStart("travel desk")
	require.NoError(t, lc.OnModelCallCompleted(true))
	require.NoError(t, lc.OnModelCallCompleted(true))
	require.Error(t, lc.OnModelCallCompleted(true))
	lc.OnInvocationEnd()

	lc.OnInvocationStart("travel desk")
	assert.Zero(t, lc.Iterations())
	require.NoError(t, lc.OnModelCallCompleted(true))
	assert.Equal(t, 1, lc.Iterations())
}

func TestFailedModelCallsDoNotConsumeBudget(t *testing.T) {
	lc := NewLoopControl("travel desk", 3)
	lc.OnInvocationStart("travel desk")

	require.NoError(t, lc.OnModelCallCompleted(false))
	assert.Zero(t, lc.Iterations())

	require.NoError(t, lc.OnModelCallCompleted(true))
	require.NoError(t, lc.OnModelCallCompleted(false))
	require.NoError(t, lc.OnModelCallCompleted(true))

	// Third success raises, regardless of the interleaved failures.
	require.Error(t, lc.OnModelCallCompleted(true))
}

func TestBudgetMonotonicity(t *testing.T) {
	lc := NewLoopControl("travel desk", 10)
	lc.OnInvocationStart("travel desk")

	prev := 0
	for i := 0; i < 9; i++ {
		require.NoError(t, lc.OnModelCallCompleted(true))
		assert.GreaterOrEqual(t, lc.Iterations(), prev)
		prev = lc.Iterations()
	}
}

func TestStartMidInvocationPanics(t *testing.T) {
	lc := NewLoopControl("travel desk", 3)
	lc.OnInvocationStart("travel desk")
	assert.Panics(t, func() { lc.OnInvocationStart("travel desk") })
}

func TestDefaultBudget(t *testing.T) {
	lc := NewLoopControl("x", 0)
	assert.Equal(t, DefaultMaxIterations, lc.Max())
}

type recordingHooks struct {
	events []string
	err    error
}

func (r *recordingHooks) OnInvocationStart(owner string) { r.events = append(r.events, "start") }
func (r *recordingHooks) OnModelCallCompleted(succeeded bool) error {
	r.events = append(r.events, "model")
	return r.err
}
func (r *recordingHooks) OnToolCallStart(name string, args map[string]any) {
	r.events = append(r.events, "tool-start:"+name)
}
func (r *recordingHooks) OnToolCallCompleted(name string, result string, err error) {
	r.events = append(r.events, "tool-end:"+name)
}
func (r *recordingHooks) OnInvocationEnd() { r.events = append(r.events, "end") }

func TestMultiHooksNotifyAllAndKeepFirstError(t *testing.T) {
	limit := &LoopLimitError{Owner: "x", Iterations: 1, Max: 1}
	first := &recordingHooks{err: limit}
	second := &recordingHooks{}

	m := MultiHooks{first, second}
	m.OnInvocationStart("x")
	err := m.OnModelCallCompleted(true)
	m.OnInvocationEnd()

	require.ErrorAs(t, err, new(*LoopLimitError))
	assert.Equal(t, []string{"start", "model", "end"}, second.events,
		"later hooks still see every checkpoint")
}
