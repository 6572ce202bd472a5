package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatedesk/db"
	"gatedesk/models"
	"gatedesk/notifications"
)

type fakeRefresher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRefresher) FetchAllGuests(context.Context) error {
	f.calls.Add(1)
	return f.err
}

func TestDispatcher_NewGuest(t *testing.T) {
	log := notifications.New(db.NewMemory(), nil, 0, nil)
	refresher := &fakeRefresher{}
	d := NewDispatcher(log, refresher, time.UTC, nil)

	d.Handle(context.Background(), Event{
		Name: EventNewGuest,
		Data: []byte(`{"code":"AC-1","name":"Alice","date":"2026-10-16","arrivalTime":1430,"residentId":"R-9"}`),
	})
	d.Wait()

	entries := log.List()
	require.Len(t, entries, 1)
	assert.Equal(t, models.NotificationNewGuest, entries[0].Type)
	assert.Equal(t, "Alice is scheduled to arrive on Fri, Oct 16 at 14:30", entries[0].Message)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Read)
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestDispatcher_MalformedPayloadStillNotifies(t *testing.T) {
	log := notifications.New(nil, nil, 0, nil)
	refresher := &fakeRefresher{err: errors.New("Server error")}
	d := NewDispatcher(log, refresher, time.UTC, nil)

	d.Handle(context.Background(), Event{Name: EventNewGuest, Data: []byte(`[1,2`)})
	d.Wait()

	require.Len(t, log.List(), 1)
	assert.Equal(t, "A visitor is scheduled to arrive on an unknown date at 00:00", log.List()[0].Message)
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestDispatcher_IgnoresOtherEvents(t *testing.T) {
	log := notifications.New(nil, nil, 0, nil)
	refresher := &fakeRefresher{}
	d := NewDispatcher(log, refresher, time.UTC, nil)

	d.Handle(context.Background(), Event{Name: "guest-left"})
	d.Wait()

	assert.Empty(t, log.List())
	assert.Zero(t, refresher.calls.Load())
}

func TestNATSSource_KeepsRetryingUnreachableServer(t *testing.T) {
	src := NewNATSSource("nats://127.0.0.1:1", "", 10*time.Millisecond, nil)
	assert.Equal(t, DefaultNATSSubject, src.subject)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := src.Run(ctx, func(context.Context, Event) {})

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}
