package events

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent    []published
	failure error
	closed  int
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.failure != nil {
		return c.failure
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed++
	return nil
}

func failedEvent() core.Event {
	idx := 2
	return core.Event{
		Type:       core.EventImportFailed,
		ImportID:   "7f9c",
		Model:      "api::article.article",
		Phase:      core.PhaseFailed,
		Count:      2,
		FailedAt:   &idx,
		Error:      "duplicate key",
		OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(failedEvent())
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "7f9c", msg.MessageId)
	assert.Equal(t, "import.failed", msg.Type)
	assert.Equal(t, "api::article.article", msg.Headers["model"])
	assert.Equal(t, int64(2), msg.Headers["failed-at"])
	assert.JSONEq(t, `{
		"type": "import.failed",
		"importId": "7f9c",
		"model": "api::article.article",
		"phase": "failed",
		"count": 2,
		"failedAt": 2,
		"error": "duplicate key",
		"occurredAt": "2024-03-01T12:00:00Z"
	}`, string(msg.Body))
}

func TestNewMessage_OmitsFailedAt(t *testing.T) {
	msg, err := NewMessage(core.Event{Type: core.EventContentDeleted, Model: "api::tag.tag", Count: 4})
	require.NoError(t, err)

	_, ok := msg.Headers["failed-at"]
	assert.False(t, ok)
	assert.NotContains(t, string(msg.Body), "failedAt")
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: "content.events"}

	require.NoError(t, p.Publish(context.Background(), failedEvent()))
	require.Len(t, ch.sent, 1)
	assert.Equal(t, "content.events", ch.sent[0].exchange)
	assert.Equal(t, "import.failed", ch.sent[0].key)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{failure: errors.New("channel/connection is not open")}
	p := &AMQPPublisher{ch: ch, exchange: "content.events"}

	err := p.Publish(context.Background(), failedEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish import.failed")
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: "content.events"}

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, ch.closed)

	err := p.Publish(context.Background(), failedEvent())
	assert.ErrorIs(t, err, ErrClosed)
}
