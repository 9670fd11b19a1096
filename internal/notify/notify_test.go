package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nirojbhetuwal/lostbuddy/internal/model"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sample() model.Notification {
	return model.Notification{
		ID:            "n1",
		UserID:        "u1",
		Type:          model.NotificationMatchFound,
		Title:         "Potential Match Found!",
		Message:       "We found a potential match",
		RelatedItemID: "i1",
		Metadata:      map[string]any{"matchScore": 0.82},
		CreatedAt:     time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaNotify(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaWithWriter(w)

	require.NoError(t, sink.Notify(context.Background(), sample()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "u1", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "type", Value: []byte(model.NotificationMatchFound)}}, msg.Headers)

	var got model.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "i1", got.RelatedItemID)
	assert.Equal(t, 0.82, got.Metadata["matchScore"])

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifyError(t *testing.T) {
	boom := errors.New("broker down")
	sink := NewKafkaWithWriter(&fakeWriter{err: boom})
	assert.ErrorIs(t, sink.Notify(context.Background(), sample()), boom)
}

func TestNewKafkaConfig(t *testing.T) {
	_, err := NewKafka(KafkaConfig{Topic: "notifications"})
	assert.Error(t, err)
	_, err = NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	k, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "notifications"})
	require.NoError(t, err)
	assert.NoError(t, k.Close())
}

func TestMultiContinuesPastFailures(t *testing.T) {
	failing := NewMemory()
	boom := errors.New("boom")
	failing.FailWith(boom)
	ok := NewMemory()

	err := Multi{failing, nil, ok}.Notify(context.Background(), sample())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.Sent(), 1)
	assert.Empty(t, failing.Sent())
}

func TestMemoryFor(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	n := sample()
	require.NoError(t, m.Notify(ctx, n))
	n.UserID = "u2"
	require.NoError(t, m.Notify(ctx, n))

	assert.Len(t, m.For("u1"), 1)
	assert.Len(t, m.For("u2"), 1)
	assert.Empty(t, m.For("u3"))
}
