package broadcast

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muzaddid-faruque/ai-traffic-light/internal/stats"
	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

func testMessage() *types.StateMessage {
	return &types.StateMessage{
		Phase:     types.PhaseGreen,
		Timestamp: time.Now(),
	}
}

func TestRegisterUnregister(t *testing.T) {
	registry := stats.New()
	b := New(registry)

	obs := b.Register()
	require.Equal(t, 1, b.Len())
	require.Equal(t, int64(1), registry.ActiveConnections())

	b.Unregister(obs.ID)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(0), registry.ActiveConnections())

	// Removal is signaled through Done.
	select {
	case <-obs.Done():
	default:
		t.Fatal("observer not marked done after unregister")
	}
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	registry := stats.New()
	b := New(registry)
	b.Register()

	b.Unregister(uuid.New())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, int64(1), registry.ActiveConnections())
}

func TestUnregisterTwice(t *testing.T) {
	b := New(stats.New())
	obs := b.Register()

	b.Unregister(obs.ID)
	b.Unregister(obs.ID) // must not panic on the closed channel
	assert.Equal(t, 0, b.Len())
}

func TestPublishDeliversToAll(t *testing.T) {
	b := New(stats.New())

	observers := make([]*Observer, 5)
	for i := range observers {
		observers[i] = b.Register()
	}

	msg := testMessage()
	delivered := b.Publish(msg)
	assert.Equal(t, 5, delivered)

	for _, obs := range observers {
		select {
		case got := <-obs.C():
			assert.Same(t, msg, got)
		default:
			t.Fatalf("observer %s received nothing", obs.ID)
		}
	}
}

func TestSlowObserverIsPrunedOthersSurvive(t *testing.T) {
	registry := stats.New()
	b := New(registry)
	b.budget = 5 * time.Millisecond

	healthy := make([]*Observer, 4)
	for i := range healthy {
		healthy[i] = b.Register()
	}
	stalled := b.Register()

	// Fill the stalled observer's buffer, then one more publish forces the
	// bounded wait to expire and prunes it.
	for i := 0; i < observerBuffer+1; i++ {
		b.Publish(testMessage())
		for _, obs := range healthy {
			<-obs.C()
		}
	}

	assert.Equal(t, 4, b.Len())
	assert.Equal(t, int64(4), registry.ActiveConnections())

	// The pruned observer is marked done with its buffered messages still
	// readable.
	select {
	case <-stalled.Done():
	default:
		t.Fatal("stalled observer not marked done")
	}
	drained := 0
	for {
		select {
		case <-stalled.C():
			drained++
			continue
		default:
		}
		break
	}
	assert.Equal(t, observerBuffer, drained)

	// Survivors keep receiving.
	delivered := b.Publish(testMessage())
	assert.Equal(t, 4, delivered)
}

func TestRegisterNotBlockedBySlowDelivery(t *testing.T) {
	registry := stats.New()
	b := New(registry)
	b.budget = 300 * time.Millisecond

	stalled := b.Register()
	for i := 0; i < observerBuffer; i++ {
		b.Publish(testMessage())
	}

	// The next publish waits out the stalled observer's send budget.
	pubDone := make(chan struct{})
	go func() {
		b.Publish(testMessage())
		close(pubDone)
	}()
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	obs := b.Register()
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"register must not wait for an in-flight delivery")
	b.Unregister(obs.ID)

	select {
	case <-pubDone:
	case <-time.After(2 * time.Second):
		t.Fatal("publish did not finish")
	}

	// The stalled observer was pruned once its budget expired.
	select {
	case <-stalled.Done():
	default:
		t.Fatal("stalled observer not pruned")
	}
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(0), registry.ActiveConnections())
}

func TestPublishWithNoObservers(t *testing.T) {
	b := New(stats.New())
	assert.Equal(t, 0, b.Publish(testMessage()))
}
