package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seguimed/cmpscrape/internal/metrics"
)

type scriptedProcessor struct {
	mu       sync.Mutex
	results  map[string]Outcome
	fatalFor string
	seen     []string
}

func (p *scriptedProcessor) Process(_ context.Context, cmp string) (Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, cmp)
	if cmp == p.fatalFor {
		return Outcome{CMP: cmp, Attempts: 1}, errors.New("browser crashed")
	}
	if out, ok := p.results[cmp]; ok {
		return out, nil
	}
	return Outcome{CMP: cmp, Attempts: 1}, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (f *fakeNotifier) NotifyFatal(subject, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
}

func TestProcessAllCountsOutcomes(t *testing.T) {
	t.Parallel()

	proc := &scriptedProcessor{results: map[string]Outcome{
		"12345": {CMP: "12345", Attempts: 1, Succeeded: true, Status: "HABIL", Elapsed: time.Second},
		"67890": {CMP: "67890", Attempts: 2, Succeeded: false, Elapsed: 2 * time.Second},
	}}
	orch := NewOrchestrator(RunConfig{}, nil, &fakeNotifier{}, metrics.New(), zap.NewNop())

	summary, err := orch.processAll(context.Background(), proc, []string{"12345", "67890"}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Successes)
	require.Equal(t, 1, summary.Failures)
	require.Equal(t, []string{"12345", "67890"}, proc.seen)
}

func TestProcessAllFeedsMetricsSnapshot(t *testing.T) {
	t.Parallel()

	proc := &scriptedProcessor{results: map[string]Outcome{
		"12345": {CMP: "12345", Attempts: 1, Succeeded: true, Elapsed: time.Second},
		"67890": {CMP: "67890", Attempts: 3, Succeeded: false, Elapsed: 2 * time.Second},
	}}
	m := metrics.New()
	orch := NewOrchestrator(RunConfig{}, nil, &fakeNotifier{}, m, zap.NewNop())

	_, err := orch.processAll(context.Background(), proc, []string{"12345", "67890"}, zap.NewNop())
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Equal(t, float64(1), snap.Succeeded)
	require.Equal(t, float64(1), snap.Failed)
	require.Equal(t, float64(4), snap.Attempts)
	require.Equal(t, float64(3), snap.DurationSeconds)
}

func TestProcessAllStopsOnFatalError(t *testing.T) {
	t.Parallel()

	proc := &scriptedProcessor{
		results: map[string]Outcome{
			"11111": {CMP: "11111", Attempts: 1, Succeeded: true},
		},
		fatalFor: "22222",
	}
	orch := NewOrchestrator(RunConfig{}, nil, &fakeNotifier{}, nil, zap.NewNop())

	summary, err := orch.processAll(context.Background(), proc, []string{"11111", "22222", "33333"}, zap.NewNop())
	require.Error(t, err)
	require.Equal(t, 1, summary.Successes)
	// The identifier after the fatal one is never reached.
	require.Equal(t, []string{"11111", "22222"}, proc.seen)
}

func TestAbortDelegatesToNotifier(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	orch := NewOrchestrator(RunConfig{}, nil, notifier, nil, zap.NewNop())

	_, err := orch.abort(zap.NewNop(), Summary{}, errors.New("browser crashed"))
	require.Error(t, err)
	require.Equal(t, []string{"Scraper stopped"}, notifier.subjects)
	require.Contains(t, notifier.bodies[0], "browser crashed")
}

func TestProcessAllHonorsCanceledContextWithPacing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := NewOrchestrator(RunConfig{PaceQPS: 0.01}, nil, &fakeNotifier{}, nil, zap.NewNop())
	_, err := orch.processAll(ctx, &scriptedProcessor{}, []string{"12345"}, zap.NewNop())
	require.Error(t, err)
}
