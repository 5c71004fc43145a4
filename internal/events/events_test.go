package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(TypeAnswerRecorded, AnswerRecordedData{UserID: "s1", SessionID: 4})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TypeAnswerRecorded, event.Type)
	assert.Equal(t, EventSource, event.Source)
	assert.Equal(t, EventVersion, event.Version)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Minute)

	other := NewEvent(TypeAnswerRecorded, nil)
	assert.NotEqual(t, event.ID, other.ID)
}

func TestWatermillPublisher_InMemory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := discardLogger()
	pubsub := NewInMemoryPubSub(logger)
	publisher := NewWatermillPublisher(pubsub, "assessment", logger)
	defer publisher.Close()

	topic := publisher.Topic(TypeSessionCompleted)
	require.Equal(t, "assessment.session_completed", topic)

	messages, err := pubsub.Subscribe(ctx, topic)
	require.NoError(t, err)

	event := NewEvent(TypeSessionCompleted, SessionCompletedData{
		UserID:            "s1",
		SessionID:         9,
		CorrectAnswers:    6,
		AnsweredQuestions: 8,
		CompletedSessions: 2,
		EstimatedAbility:  0.75,
		EndReason:         "confidence_reached",
	})
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, TypeSessionCompleted, msg.Metadata.Get("event_type"))
		assert.Equal(t, EventSource, msg.Metadata.Get("source"))

		var decoded struct {
			Type string               `json:"type"`
			Data SessionCompletedData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, TypeSessionCompleted, decoded.Type)
		assert.Equal(t, uint(9), decoded.Data.SessionID)
		assert.Equal(t, "confidence_reached", decoded.Data.EndReason)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillPublisher_TopicWithoutPrefix(t *testing.T) {
	publisher := NewWatermillPublisher(NewInMemoryPubSub(discardLogger()), "", discardLogger())
	defer publisher.Close()
	assert.Equal(t, TypeAnswerRecorded, publisher.Topic(TypeAnswerRecorded))
}

func TestNewPublisherFromConfig(t *testing.T) {
	logger := discardLogger()

	t.Run("Memory", func(t *testing.T) {
		publisher, err := NewPublisherFromConfig(config.EventsConfig{Backend: "memory", TopicPrefix: "x"}, logger)
		require.NoError(t, err)
		defer publisher.Close()
		_, ok := publisher.(*WatermillPublisher)
		assert.True(t, ok)
		assert.NoError(t, publisher.Publish(context.Background(), NewEvent(TypeAnswerRecorded, nil)))
	})

	t.Run("None", func(t *testing.T) {
		publisher, err := NewPublisherFromConfig(config.EventsConfig{Backend: "none"}, logger)
		require.NoError(t, err)
		assert.IsType(t, NoopPublisher{}, publisher)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := NewPublisherFromConfig(config.EventsConfig{Backend: "smtp"}, logger)
		assert.Error(t, err)
	})
}

func TestMockEventPublisher(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEventPublisher(discardLogger())

	require.NoError(t, mock.Publish(ctx, NewEvent(TypeAnswerRecorded, nil)))
	require.NoError(t, mock.Publish(ctx, NewEvent(TypeSessionCompleted, nil)))
	require.NoError(t, mock.Publish(ctx, NewEvent(TypeAnswerRecorded, nil)))

	assert.Len(t, mock.GetPublishedEvents(), 3)
	assert.Len(t, mock.EventsOfType(TypeAnswerRecorded), 2)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())

	boom := errors.New("unavailable")
	mock.FailWith(boom)
	assert.ErrorIs(t, mock.Publish(ctx, NewEvent(TypeAnswerRecorded, nil)), boom)
	assert.Empty(t, mock.GetPublishedEvents())
}
