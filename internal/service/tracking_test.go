package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/davakhana/internal/model"
)

func TestProcessTrackingBatch(t *testing.T) {
	env := newTestEnv(t, WithShipAfter(10*time.Minute))
	ctx := context.Background()
	buyer := env.user(t, "buyer@example.in", model.RoleBuyer)

	_, err := env.svc.AddToCart(ctx, buyer.ID, "dk-001", 1)
	require.NoError(t, err)
	o, err := env.svc.CreateOrder(ctx, buyer.ID, model.OrderDraft{Address: "Civil Lines", City: "Kanpur"})
	require.NoError(t, err)
	require.Equal(t, "Thursday, 15 Jan", o.EstimatedArrival)

	status := func() model.OrderStatus {
		got, err := env.repo.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		return got.Status
	}

	env.now = monday.Add(5 * time.Minute)
	env.svc.processTrackingBatch(ctx)
	assert.Equal(t, model.OrderStatusProcessing, status())

	env.now = monday.Add(11 * time.Minute)
	env.svc.processTrackingBatch(ctx)
	assert.Equal(t, model.OrderStatusShipped, status())

	env.now = time.Date(2026, time.January, 15, 23, 0, 0, 0, ist)
	env.svc.processTrackingBatch(ctx)
	assert.Equal(t, model.OrderStatusShipped, status(), "arrival day is not over yet")

	env.now = time.Date(2026, time.January, 16, 0, 0, 0, 0, ist)
	env.svc.processTrackingBatch(ctx)
	assert.Equal(t, model.OrderStatusDelivered, status())

	got, err := env.repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thursday, 15 Jan", got.EstimatedArrival, "ETA is never recomputed")
}

func TestProcessTrackingBatch_ShippedBacklogDoesNotBlockNewOrders(t *testing.T) {
	env := newTestEnv(t, WithShipAfter(10*time.Minute))
	ctx := context.Background()

	for i := 0; i < trackingBatchSize+20; i++ {
		created := monday.Add(-time.Duration(i+1) * time.Hour)
		require.NoError(t, env.repo.CreateOrder(ctx, model.Order{
			ID:          fmt.Sprintf("DK-ORD-%d", 20000+i),
			UserID:      "u-backlog",
			Status:      model.OrderStatusShipped,
			Tier:        model.TierStandard,
			City:        "Delhi",
			ArrivalDate: time.Date(2026, time.January, 19, 0, 0, 0, 0, ist),
			CreatedAt:   created,
			UpdatedAt:   created,
		}))
	}

	buyer := env.user(t, "buyer@example.in", model.RoleBuyer)
	_, err := env.svc.AddToCart(ctx, buyer.ID, "dk-001", 1)
	require.NoError(t, err)
	o, err := env.svc.CreateOrder(ctx, buyer.ID, model.OrderDraft{Address: "Civil Lines", City: "Kanpur"})
	require.NoError(t, err)

	env.now = monday.Add(time.Hour)
	env.svc.processTrackingBatch(ctx)

	got, err := env.repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, got.Status)
}

func TestProcessTrackingBatch_DeliversAcrossBatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	total := trackingBatchSize + 5
	for i := 0; i < total; i++ {
		require.NoError(t, env.repo.CreateOrder(ctx, model.Order{
			ID:          fmt.Sprintf("DK-ORD-%d", 30000+i),
			UserID:      "u-backlog",
			Status:      model.OrderStatusShipped,
			Tier:        model.TierStandard,
			City:        "Kanpur",
			ArrivalDate: time.Date(2026, time.January, 13, 0, 0, 0, 0, ist),
			CreatedAt:   monday,
			UpdatedAt:   monday,
		}))
	}

	env.now = time.Date(2026, time.January, 14, 0, 0, 0, 0, ist)
	env.svc.processTrackingBatch(ctx)
	env.svc.processTrackingBatch(ctx)

	orders, err := env.repo.ListOrders(ctx, "u-backlog")
	require.NoError(t, err)
	require.Len(t, orders, total)
	for _, o := range orders {
		assert.Equal(t, model.OrderStatusDelivered, o.Status, o.ID)
	}
}

func TestRunTracking_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t, WithTrackingInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.svc.RunTracking(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunTracking did not stop after cancel")
	}
}
