//go:build integration

package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pgeventbus "github.com/coordinator/agent-board/internal/adapter/postgres/eventbus"
	domainevent "github.com/coordinator/agent-board/internal/domain/event"
	"github.com/coordinator/agent-board/internal/testutil"
)

func TestEventBus_PublishDeliversToSubscriber(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	bus := pgeventbus.New(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan domainevent.Event, 1)
	sub, err := bus.Subscribe(ctx, domainevent.ChannelTask, func(_ context.Context, e domainevent.Event) {
		received <- e
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// give the LISTEN goroutine a moment to start before publishing.
	time.Sleep(100 * time.Millisecond)

	want := domainevent.New(domainevent.TypeTaskAssigned, "task-123")
	require.NoError(t, bus.Publish(ctx, want))

	select {
	case got := <-received:
		require.Equal(t, want.Type, got.Type)
		require.Equal(t, want.EntityID, got.EntityID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event notification")
	}
}
