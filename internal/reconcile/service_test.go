package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type recorder struct {
	success map[string]int
	failure map[string]int
	skipped map[string]int
	timed   int
}

func newRecorder() *recorder {
	return &recorder{success: map[string]int{}, failure: map[string]int{}, skipped: map[string]int{}}
}

func (r *recorder) ObserveDuration(string, time.Duration) { r.timed++ }
func (r *recorder) IncSuccess(job string, _ time.Time)     { r.success[job]++ }
func (r *recorder) IncFailure(job string)                  { r.failure[job]++ }
func (r *recorder) IncSkipped(job string)                  { r.skipped[job]++ }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	a, b := &testJob{name: "a"}, &testJob{name: "b"}
	registry := NewRegistry(a, nil)
	registry.Register(b)
	registry.Register(nil)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	require.Same(t, a, jobs[0])
	require.Same(t, b, jobs[1])

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])
}

func TestRunOnceRunsEveryJobEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	bad := &testJob{name: "bad", err: errors.New("boom")}
	after := &testJob{name: "after"}
	lock := &fakeLock{}
	rec := newRecorder()

	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(ok, bad, after),
		Lock:     lock,
		Metrics:  rec,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, bad.runs)
	require.Equal(t, 1, after.runs)
	require.Equal(t, 1, rec.success["ok"])
	require.Equal(t, 1, rec.failure["bad"])
	require.Equal(t, 3, rec.timed)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "counts"}
	rec := newRecorder()
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
		Metrics:  rec,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Zero(t, job.runs)
	require.Equal(t, 1, rec.skipped["counts"])
}

func TestNewServiceValidatesSchedule(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, Schedule: "every now and then"})
	require.Error(t, err)

	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}, Schedule: "0 3 * * *"})
	require.NoError(t, err)
	from := time.Date(2026, 1, 2, 4, 0, 0, 0, time.Local)
	require.True(t, svc.NextRun(from).Equal(time.Date(2026, 1, 3, 3, 0, 0, 0, time.Local)))

	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	require.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "once"}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(job), Lock: &fakeLock{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Equal(t, 1, job.runs)
}
