package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"github.com/riskibarqy/fpl-livescore/internal/usecase"
	"github.com/stretchr/testify/require"
)

type recordingJobs struct {
	sweeps   chan struct{}
	warms    chan []int64
	sweepErr error
}

func newRecordingJobs() *recordingJobs {
	return &recordingJobs{
		sweeps: make(chan struct{}, 8),
		warms:  make(chan []int64, 8),
	}
}

func (j *recordingJobs) SweepCache(context.Context) (usecase.SweepResult, error) {
	j.sweeps <- struct{}{}
	return usecase.SweepResult{CurrentGameweek: 12, Removed: 3}, j.sweepErr
}

func (j *recordingJobs) WarmLeagues(_ context.Context, leagueIDs []int64) error {
	j.warms <- leagueIDs
	return nil
}

func TestScheduler_RunsJobsOnStart(t *testing.T) {
	t.Parallel()

	jobs := newRecordingJobs()
	s, err := NewScheduler(jobs, Config{
		SweepInterval: time.Hour,
		WarmInterval:  time.Hour,
		WarmLeagueIDs: []int64{314, 2718},
	}, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	select {
	case <-jobs.sweeps:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected cache sweep to run on start")
	}
	select {
	case ids := <-jobs.warms:
		require.Equal(t, []int64{314, 2718}, ids)
	case <-time.After(5 * time.Second):
		t.Fatalf("expected league warm-up to run on start")
	}
}

func TestScheduler_WarmUpDisabledWithoutLeagues(t *testing.T) {
	t.Parallel()

	jobs := newRecordingJobs()
	jobs.sweepErr = errors.New("bootstrap unavailable")
	s, err := NewScheduler(jobs, Config{SweepInterval: time.Hour, WarmInterval: time.Minute}, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start())

	select {
	case <-jobs.sweeps:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected cache sweep to run on start")
	}
	require.NoError(t, s.Stop())

	select {
	case ids := <-jobs.warms:
		t.Fatalf("expected no warm-up job, got run for %v", ids)
	default:
	}
}
