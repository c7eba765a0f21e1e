package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"vcar-client/internal/api"
	"vcar-client/internal/config"
	"vcar-client/internal/domain"
	"vcar-client/internal/jobs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingService struct {
	calls atomic.Int32
}

func (c *countingService) List(context.Context, int, int) (*api.Page[domain.Notification], error) {
	n := c.calls.Add(1)
	return &api.Page[domain.Notification]{Items: []domain.Notification{{ID: string(rune('a' + n))}}}, nil
}

func (c *countingService) MarkAsRead(context.Context, string) error { return nil }

func (c *countingService) Unread(context.Context) ([]domain.Notification, error) { return nil, nil }

func runner(schedule string, svc *countingService, sink jobs.Sink) *jobs.JobRunner {
	cfg := &config.Config{}
	cfg.Notifications.PollSchedule = schedule
	cfg.Notifications.PageSize = 5
	return jobs.NewJobRunner(svc, sink, cfg)
}

func TestScheduler_PollsOnSchedule(t *testing.T) {
	svc := &countingService{}
	delivered := make(chan domain.Notification, 8)
	s, err := NewScheduler(runner("@every 1s", svc, jobs.SinkFunc(func(n domain.Notification) {
		select {
		case delivered <- n:
		default:
		}
	})))
	require.NoError(t, err)
	assert.True(t, s.IsRunning())

	s.Start()
	select {
	case <-delivered:
	case <-time.After(3 * time.Second):
		t.Fatal("poll did not run")
	}
	s.Stop()

	assert.GreaterOrEqual(t, svc.calls.Load(), int32(1))
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler(runner("every now and then", &countingService{}, jobs.SinkFunc(func(domain.Notification) {})))
	assert.Error(t, err)
}
