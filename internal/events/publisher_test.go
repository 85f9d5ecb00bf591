package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/classroom-service/internal/config"
)

type countingObserver struct {
	ok, failed int
}

func (o *countingObserver) EventPublished(eventType string, err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

type failingPublisher struct{}

func (failingPublisher) Publish(topic string, msgs ...*message.Message) error {
	return errors.New("broker unavailable")
}

func (failingPublisher) Close() error {
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_GoChannelDelivery(t *testing.T) {
	observer := &countingObserver{}
	pub, channel, err := NewPublisher(config.EventsConfig{Topic: "classroom.events"}, quietLogger(), observer)
	require.NoError(t, err)
	require.NotNil(t, channel)
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	messages, err := channel.Subscribe(ctx, "classroom.events")
	require.NoError(t, err)

	grade := 9.0
	pub.Publish(ctx, SubmissionGraded, SubmissionData{SubmissionID: "s1", AssignmentID: "a1", StudentEmail: "ana@school.edu", Grade: &grade})

	select {
	case msg := <-messages:
		msg.Ack()
		env, err := Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, SubmissionGraded, env.Type)
		assert.Equal(t, Source, env.Source)
		assert.Equal(t, SubmissionGraded, msg.Metadata.Get("type"))

		var data SubmissionData
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "ana@school.edu", data.StudentEmail)
		require.NotNil(t, data.Grade)
		assert.Equal(t, 9.0, *data.Grade)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}

	assert.Equal(t, 1, observer.ok)
}

func TestPublisher_ErrorsAreSwallowed(t *testing.T) {
	observer := &countingObserver{}
	pub := NewWatermillPublisher(failingPublisher{}, "classroom.events", quietLogger(), observer)

	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), QueryAnswered, QueryData{QueryID: "q1"})
	})
	assert.Equal(t, 1, observer.failed)
}

func TestNewMessage_UnencodablePayload(t *testing.T) {
	_, err := NewMessage(QueryCreated, map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	p.Publish(context.Background(), QueryCreated, nil)
	assert.NoError(t, p.Close())
}
