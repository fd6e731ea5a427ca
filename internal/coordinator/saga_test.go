package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/stock-ledger/internal/coordinator/sagalog"
)

// recordingStep logs its Execute/Compensate calls into a shared trace so
// tests can assert on ordering.
type recordingStep struct {
	name          string
	trace         *[]string
	executeErr    error
	compensateErr error
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Execute(ctx context.Context) error {
	*s.trace = append(*s.trace, "exec:"+s.name)
	return s.executeErr
}

func (s *recordingStep) Compensate(ctx context.Context) error {
	*s.trace = append(*s.trace, "comp:"+s.name)
	return s.compensateErr
}

// memoryLog collects saga log entries in memory for assertions.
type memoryLog struct {
	mu      sync.Mutex
	entries []*sagalog.SagaLog
}

func (m *memoryLog) Save(ctx context.Context, entry *sagalog.SagaLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryLog) statuses() []sagalog.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sagalog.Status, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Status
	}
	return out
}

func TestSagaRunsStepsInOrder(t *testing.T) {
	var trace []string
	steps := []Step{
		&recordingStep{name: "a", trace: &trace},
		&recordingStep{name: "b", trace: &trace},
		&recordingStep{name: "c", trace: &trace},
	}
	log := &memoryLog{}

	err := NewOrchestrator("saga-1", steps, log).Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c"}, trace)
	assert.Equal(t, []sagalog.Status{
		sagalog.StatusStarted,
		sagalog.StatusStepDone,
		sagalog.StatusStepDone,
		sagalog.StatusStepDone,
		sagalog.StatusCompleted,
	}, log.statuses())
}

func TestSagaCompensatesCompletedStepsInReverseOrder(t *testing.T) {
	boom := errors.New("step c refused")
	var trace []string
	steps := []Step{
		&recordingStep{name: "a", trace: &trace},
		&recordingStep{name: "b", trace: &trace},
		&recordingStep{name: "c", trace: &trace, executeErr: boom},
	}
	log := &memoryLog{}

	err := NewOrchestrator("saga-1", steps, log).Start(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, IsCompensationFailure(err), "a clean rollback is an ordinary failure")

	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}, trace,
		"the failed step is not compensated; the rest roll back LIFO")

	statuses := log.statuses()
	assert.Equal(t, sagalog.StatusCompensating, statuses[3])
	assert.Equal(t, sagalog.StatusCompensated, statuses[len(statuses)-1])
}

func TestSagaAggregatesCompensationFailures(t *testing.T) {
	boom := errors.New("step c refused")
	undoA := errors.New("undo of a refused")
	var trace []string
	steps := []Step{
		&recordingStep{name: "a", trace: &trace, compensateErr: undoA},
		&recordingStep{name: "b", trace: &trace},
		&recordingStep{name: "c", trace: &trace, executeErr: boom},
	}
	log := &memoryLog{}

	err := NewOrchestrator("saga-1", steps, log).Start(context.Background())
	require.Error(t, err)
	require.True(t, IsCompensationFailure(err))

	var ce *CompensationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, boom, "the original cause stays reachable")
	assert.Equal(t, undoA, ce.Failed["a"])
	assert.NotContains(t, ce.Failed, "b", "b's compensation succeeded")

	assert.Contains(t, trace, "comp:b", "every compensation is attempted, not just until the first failure")
	assert.Contains(t, trace, "comp:a")

	statuses := log.statuses()
	assert.Equal(t, sagalog.StatusFailed, statuses[len(statuses)-1],
		"lost consistency lands in the log as FAILED")
}

func TestSagaFirstStepFailureCompensatesNothing(t *testing.T) {
	boom := errors.New("step a refused")
	var trace []string
	steps := []Step{
		&recordingStep{name: "a", trace: &trace, executeErr: boom},
		&recordingStep{name: "b", trace: &trace},
	}

	err := NewOrchestrator("saga-1", steps, nil).Start(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"exec:a"}, trace)
}

func TestSagaWithNilLog(t *testing.T) {
	var trace []string
	steps := []Step{&recordingStep{name: "a", trace: &trace}}
	assert.NoError(t, NewOrchestrator("saga-1", steps, nil).Start(context.Background()))
}
