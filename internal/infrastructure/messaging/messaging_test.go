package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-studio-api/pkg/logger"
)

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 8*time.Second, cfg.CalculateBackoff(3))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(4))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(50))
}

func TestStreamNames(t *testing.T) {
	assert.Equal(t, "stream:ebook:gen", string(StreamBookGen))
	assert.Equal(t, "dlq:stream:ebook:gen", StreamBookGen.DLQStream())
}

func TestPublishAndConsumeBookJob(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamBookGen,
		Group:        ConsumerGroupGenWorker,
		ConsumerName: "test-worker",
		BlockTimeout: 50 * time.Millisecond,
	})

	received := make(chan BookJobMessage, 1)
	var calls atomic.Int32
	consumer.RegisterHandler(MessageTypeBookGen, func(_ context.Context, msg *Message) error {
		calls.Add(1)
		var payload BookJobMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		received <- payload
		return nil
	})
	require.NoError(t, consumer.Start(ctx))
	defer consumer.Stop()

	producer := NewProducer(rdb, 0)
	_, err := producer.PublishBookJob(ctx, &BookJobMessage{
		JobID:   "job-1",
		OwnerID: "user@example.com",
		Topic:   "Urban gardening",
		Tone:    "Casual",
	})
	require.NoError(t, err)

	select {
	case payload := <-received:
		assert.Equal(t, "job-1", payload.JobID)
		assert.Equal(t, "Urban gardening", payload.Topic)
		assert.Equal(t, "Casual", payload.Tone)
	case <-time.After(3 * time.Second):
		t.Fatal("message was not consumed")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestMessageMetadata(t *testing.T) {
	msg, err := NewMessage("m1", MessageTypeBookGen, "owner", map[string]string{"topic": "x"})
	require.NoError(t, err)
	assert.Empty(t, msg.GetMetadata("trace_id"))
	msg.SetMetadata("trace_id", "abc")
	assert.Equal(t, "abc", msg.GetMetadata("trace_id"))

	var payload map[string]string
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, "x", payload["topic"])
}

func TestMessageStampRestore(t *testing.T) {
	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-9")
	msg, err := NewMessage("job-9", MessageTypeBookGen, "owner@example.com", BookJobMessage{JobID: "job-9"})
	require.NoError(t, err)
	msg.Stamp(ctx)
	assert.Equal(t, "req-9", msg.GetMetadata("request_id"))
	assert.Empty(t, msg.GetMetadata("trace_id"))

	restored := msg.Restore(context.Background())
	assert.Equal(t, "req-9", restored.Value(logger.RequestIDKey))
	assert.Equal(t, "job-9", restored.Value(logger.JobIDKey))
	assert.Equal(t, "owner@example.com", restored.Value(logger.UserIDKey))
}
