package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/testutil"
)

type mockKafkaReader struct {
	mu       sync.Mutex
	queue    []kafka.Message
	commits  []kafka.Message
	closed   bool
	fetchErr error
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if m.fetchErr != nil {
		err := m.fetchErr
		m.fetchErr = nil
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, msgs...)
	return nil
}

func (m *mockKafkaReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockKafkaReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

func (m *mockKafkaReader) committed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commits)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*ProducerMessage
	err  error
}

func (r *recordingPublisher) Publish(ctx context.Context, msg *ProducerMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func newTestConsumer(reader ReaderInterface, retry RetryConfig) *Consumer {
	return &Consumer{
		reader: reader,
		config: ConsumerConfig{
			Brokers:     []string{"localhost:9092"},
			GroupID:     "dti-worker",
			Topics:      []string{TopicPredictionCompleted},
			RetryConfig: retry,
		},
		logger:   testutil.NewMockLogger(),
		handlers: make(map[string]MessageHandler),
		metrics:  &ConsumerMetrics{},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	valid := ConsumerConfig{Brokers: []string{"b"}, GroupID: "g", Topics: []string{"t"}}
	assert.NoError(t, ValidateConsumerConfig(valid))

	noGroup := valid
	noGroup.GroupID = ""
	assert.Error(t, ValidateConsumerConfig(noGroup))

	badReset := valid
	badReset.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(badReset))

	noTopics := valid
	noTopics.Topics = nil
	assert.Error(t, ValidateConsumerConfig(noTopics))
}

func TestSubscribe(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, RetryConfig{})
	require.NoError(t, c.Subscribe("t", func(ctx context.Context, msg *Message) error { return nil }))
	assert.Len(t, c.handlers, 1)
	assert.Error(t, c.Subscribe("", nil))

	require.NoError(t, c.Unsubscribe("t"))
	assert.Empty(t, c.handlers)
}

func TestStart_AlreadyRunning(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, RetryConfig{})
	c.running.Store(true)
	assert.Equal(t, ErrAlreadyRunning, c.Start(context.Background()))
}

func TestConsumeLoop_DispatchesAndCommits(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{{
		Topic:   TopicPredictionCompleted,
		Value:   []byte("value"),
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(EventPredictionCompleted)}},
	}}}
	c := newTestConsumer(reader, RetryConfig{})

	handled := make(chan *Message, 1)
	require.NoError(t, c.Subscribe(TopicPredictionCompleted, func(ctx context.Context, msg *Message) error {
		handled <- msg
		return nil
	}))
	require.NoError(t, c.Start(context.Background()))

	select {
	case msg := <-handled:
		assert.Equal(t, "value", string(msg.Value))
		assert.Equal(t, EventPredictionCompleted, msg.Header(HeaderEventType))
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	assert.Eventually(t, func() bool { return reader.committed() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
	assert.Equal(t, int64(1), c.GetMetrics().MessagesProcessed.Load())
}

func TestConsumeLoop_UnknownTopicIsCommitted(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{{Topic: "other", Value: []byte("x")}}}
	c := newTestConsumer(reader, RetryConfig{})
	require.NoError(t, c.Start(context.Background()))

	assert.Eventually(t, func() bool { return reader.committed() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	assert.True(t, c.logger.(*testutil.MockLogger).HasMessage("warn", "no handler for topic"))
}

func TestProcessMessage_RetrySuccess(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, RetryConfig{MaxRetries: 2, RetryBackoff: time.Millisecond})

	var attempts int32
	err := c.processMessage(context.Background(), &Message{Topic: "t"}, func(ctx context.Context, msg *Message) error {
		if atomic.AddInt32(&attempts, 1) < 2 {
			return errors.New("fail")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(2), attempts)
	assert.Equal(t, int64(1), c.metrics.MessagesRetried.Load())
}

func TestProcessMessage_ExhaustedGoesToDeadLetter(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, RetryConfig{MaxRetries: 1, RetryBackoff: time.Millisecond, EnableDeadLetter: true})
	dl := &recordingPublisher{}
	c.deadLetter = dl

	msg := &Message{Topic: TopicPredictionCompleted, Key: []byte("k"), Value: []byte("v"), Headers: map[string]string{"a": "b"}}
	err := c.processMessage(context.Background(), msg, func(ctx context.Context, msg *Message) error {
		return errors.New("boom")
	})

	assert.EqualError(t, err, "boom")
	require.Len(t, dl.msgs, 1)
	assert.Equal(t, "dti.prediction.completed.dlq", dl.msgs[0].Topic)
	assert.Equal(t, TopicPredictionCompleted, dl.msgs[0].Headers[HeaderOriginalTopic])
	assert.Equal(t, "boom", dl.msgs[0].Headers[HeaderErrorMessage])
	assert.Equal(t, "b", dl.msgs[0].Headers["a"])
	assert.NotContains(t, msg.Headers, HeaderOriginalTopic)
	assert.Equal(t, int64(1), c.metrics.MessagesDeadLettered.Load())
}

func TestProcessMessage_CancelledDuringBackoff(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, RetryConfig{MaxRetries: 3, RetryBackoff: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.processMessage(ctx, &Message{}, func(ctx context.Context, msg *Message) error {
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumerClose_NotRunning(t *testing.T) {
	c := newTestConsumer(&mockKafkaReader{}, RetryConfig{})
	assert.NoError(t, c.Close())
}
