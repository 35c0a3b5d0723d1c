package kafka

import (
	"context"
	"time"
)

// Message is a record read from a topic.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Header returns the named header or "".
func (m *Message) Header(key string) string {
	if m == nil || m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

// ProducerMessage is a record to be written to a topic.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int
	Timestamp time.Time
}

// MessageHandler processes one consumed message.
type MessageHandler func(ctx context.Context, msg *Message) error

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	MaxMessageBytes   int
	Configs           map[string]string
}

// BatchItemError records the failure of one message in a batch.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// BatchPublishResult summarises a PublishBatch call.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}
