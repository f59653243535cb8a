package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	err error
}

func (s *failingSink) Append(_ context.Context, _ Event) error {
	return s.err
}

func TestPublisher_EmitAppendsEvent(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink)

	event := Event{
		Action:       ActionCredentialIssued,
		CredentialID: "101",
		AssetID:      101,
		Actor:        "REGISTRAR",
		TxID:         "TX-ISSUE",
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ActionCredentialIssued, events[0].Action)
	assert.Equal(t, "101", events[0].CredentialID)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink)

	before := time.Now()
	err := pub.Emit(context.Background(), Event{Action: ActionCredentialIssued, CredentialID: "101"})
	require.NoError(t, err)
	after := time.Now()

	events := sink.Events()
	require.Len(t, events, 1)
	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink)

	customTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), Event{
		Action:       ActionCredentialRevoked,
		CredentialID: "101",
		Timestamp:    customTime,
	})
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_EmitReturnsSinkError(t *testing.T) {
	sinkErr := errors.New("append failed")
	pub := NewPublisher(&failingSink{err: sinkErr})

	err := pub.Emit(context.Background(), Event{Action: ActionCredentialIssued})
	require.ErrorIs(t, err, sinkErr)
}

func TestPublisher_AsyncDeliversInBackground(t *testing.T) {
	sink := NewMemorySink()
	pub := NewPublisher(sink, WithAsyncBuffer(16))

	for i := 0; i < 5; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{
			Action:       ActionCredentialTransferred,
			CredentialID: "101",
		}))
	}

	// Close drains the buffer before returning.
	pub.Close()

	assert.Len(t, sink.Events(), 5)
}

func TestPublisher_AsyncDropsWhenBufferFull(t *testing.T) {
	// A sink that blocks until released, so the buffer fills up.
	release := make(chan struct{})
	sink := &blockingSink{release: release, inner: NewMemorySink()}
	pub := NewPublisher(sink, WithAsyncBuffer(1))

	// First event is picked up by the worker and blocks in Append; the
	// second fills the buffer; everything after is dropped without error.
	for i := 0; i < 10; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{
			Action:       ActionCredentialIssued,
			CredentialID: "101",
		}))
	}

	close(release)
	pub.Close()

	delivered := len(sink.inner.Events())
	assert.GreaterOrEqual(t, delivered, 1)
	assert.LessOrEqual(t, delivered, 3)
}

type blockingSink struct {
	release chan struct{}
	inner   *MemorySink
}

func (s *blockingSink) Append(ctx context.Context, event Event) error {
	<-s.release
	return s.inner.Append(ctx, event)
}
