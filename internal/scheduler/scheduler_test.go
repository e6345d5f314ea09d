package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	count int
	done  chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.count++
	if j.done != nil {
		select {
		case j.done <- struct{}{}:
		default:
		}
	}
	return nil
}

func TestScheduler_RunNowExecutesImmediately(t *testing.T) {
	s := New(time.UTC, zerolog.Nop())
	job := &countingJob{name: "test_job"}

	require.NoError(t, s.RunNow(job))
	require.Equal(t, 1, job.count)
}

func TestScheduler_AddJobRegistersAndFires(t *testing.T) {
	s := New(time.UTC, zerolog.Nop())
	job := &countingJob{name: "every_second", done: make(chan struct{}, 1)}

	require.NoError(t, s.AddJob("@every 1s", job))
	s.Start()
	defer s.Stop()

	select {
	case <-job.done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire within 3s")
	}
	require.GreaterOrEqual(t, job.count, 1)
}
