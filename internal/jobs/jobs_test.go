package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/wizard"
	"github.com/huddle-bot/huddle/internal/gateways/memory"
	"github.com/huddle-bot/huddle/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunCountsOutcomes(t *testing.T) {
	s := NewScheduler(time.Second)

	ok := Job{Name: "test_ok", Spec: "@every 1h", Run: func(context.Context) error { return nil }}
	bad := Job{Name: "test_bad", Spec: "@every 1h", Run: func(context.Context) error { return errors.New("nope") }}

	before := testutil.ToFloat64(metrics.JobRuns.WithLabelValues("test_bad", "failed"))
	s.run(ok)
	s.run(bad)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("test_ok", "success")))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("test_bad", "failed")))
}

func TestScheduler_RunHasDeadline(t *testing.T) {
	s := NewScheduler(50 * time.Millisecond)

	var hadDeadline bool
	s.run(Job{Name: "test_deadline", Run: func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}})
	assert.True(t, hadDeadline)
}

func TestScheduler_AddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.Second)
	assert.Error(t, s.Add(Job{Name: "broken", Spec: "every tuesday", Run: func(context.Context) error { return nil }}))
	assert.NoError(t, s.Add(Job{Name: "fine", Spec: "*/5 * * * *", Run: func(context.Context) error { return nil }}))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestExpireSubscriptions(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	repo := memory.NewSubscriptionRepository()
	service := entitlements.NewService(repo, clk, entitlements.Config{FreeQuota: 2, PremiumQuota: 50})
	ctx := context.Background()

	_, err := service.SetTier(ctx, 1, entitlements.TierMonthly, clk.Now().Add(24*time.Hour))
	require.NoError(t, err)
	_, err = service.SetTier(ctx, 2, entitlements.TierYearly, clk.Now().Add(100*24*time.Hour))
	require.NoError(t, err)

	clk.Advance(48 * time.Hour)
	require.NoError(t, ExpireSubscriptions("@daily", service).Run(ctx))

	sub, err := service.Subscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, entitlements.TierFree, sub.Tier)

	sub, err = service.Subscription(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, entitlements.TierYearly, sub.Tier)
}

func TestSweepWizard(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	manager := wizard.NewManager(time.Minute, clk)
	manager.Begin(wizard.Key{UserID: 1, ConversationID: "a"}, 1)

	clk.Advance(2 * time.Minute)
	require.NoError(t, SweepWizard("@every 1m", manager).Run(context.Background()))
	assert.Zero(t, manager.Len())
}
