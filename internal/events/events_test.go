package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventListingReady)

	bus.Publish(&ListingReadyEvent{
		BaseEvent:   BaseEvent{EventType: EventListingReady, Time: time.Now()},
		Path:        "b/",
		Filter:      "*",
		Files:       2,
		Directories: 1,
	})

	select {
	case received := <-ch:
		ready, ok := received.(*ListingReadyEvent)
		require.True(t, ok, "Expected ListingReadyEvent")
		assert.Equal(t, "b/", ready.Path)
		assert.Equal(t, 2, ready.Files)
		assert.Equal(t, 1, ready.Directories)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_DifferentEventTypes(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	errCh := bus.Subscribe(EventError)
	uploadCh := bus.Subscribe(EventUploadState)

	bus.PublishUploadState(true, "x.txt", "started")

	select {
	case <-errCh:
		t.Fatal("error subscriber should not receive upload events")
	case <-time.After(20 * time.Millisecond):
	}

	select {
	case ev := <-uploadCh:
		state, ok := ev.(*UploadStateEvent)
		require.True(t, ok)
		assert.True(t, state.Uploading)
		assert.Equal(t, "x.txt", state.Name)
		assert.Equal(t, "started", state.Outcome)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for upload state event")
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()

	bus.PublishError("Delete", "Failed to delete the file a.txt: Forbidden", errors.New("forbidden"))
	bus.PublishProgress("a.txt", "download", 5, 10)

	var got []EventType
	for i := 0; i < 2; i++ {
		select {
		case ev := <-all:
			got = append(got, ev.Type())
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", i)
		}
	}
	assert.Equal(t, []EventType{EventError, EventProgress}, got)
}

func TestEventBus_NonBlocking(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	_ = bus.Subscribe(EventProgress)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.PublishProgress("big.bin", "upload", int64(i), 5)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	assert.EqualValues(t, 4, bus.GetDroppedEventCount())
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.Subscribe(EventSessionClosed)

	bus.Close()
	bus.Close() // idempotent

	_, ok := <-ch
	assert.False(t, ok, "Expected channel to be closed")

	late := bus.Subscribe(EventError)
	_, ok = <-late
	assert.False(t, ok, "Subscribing after close should return a closed channel")
}

func TestPublishProgress_UnknownTotal(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(EventProgress)

	bus.PublishProgress("stream", "download", 42, 0)

	ev := (<-ch).(*ProgressEvent)
	assert.Negative(t, ev.Progress)
	assert.NoError(t, ev.Err)
}

func TestPublishProgressFailed(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(EventProgress)

	bus.PublishProgressFailed("a.txt", "upload", 4, 10, errors.New("connection reset"))

	ev := (<-ch).(*ProgressEvent)
	assert.EqualError(t, ev.Err, "connection reset")
	assert.EqualValues(t, 4, ev.BytesCurrent)
	assert.Negative(t, ev.Progress)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventSelection)
	bus.Unsubscribe(EventSelection, ch)

	_, ok := <-ch
	assert.False(t, ok, "Expected unsubscribed channel to be closed")

	// Publishing after unsubscribe must not panic on the closed channel
	assert.NotPanics(t, func() {
		bus.Publish(&SelectionEvent{BaseEvent: BaseEvent{EventType: EventSelection, Time: time.Now()}})
	})
}
