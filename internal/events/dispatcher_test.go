package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatcher_DeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var got []string

	d.Subscribe(EventRequestCreated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.RequestID)
		return errors.New("boom")
	})
	d.Subscribe(EventRequestCreated, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.RequestID)
		return nil
	})
	d.Subscribe(EventRequestAssigned, func(_ context.Context, e Event) error {
		got = append(got, "assigned:"+e.RequestID)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventRequestCreated, RequestID: "r1"})

	assert.NoError(t, err)
	assert.Equal(t, []string{"first:r1", "second:r1"}, got)
}
