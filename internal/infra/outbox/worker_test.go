package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu     sync.Mutex
	docs   []*EventDocument
	sent   []string
	failed map[string]string
}

func (q *fakeQueue) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, doc := range q.docs {
		if doc.State == StateNew {
			doc.State = StateClaimed
			doc.ClaimedBy = workerID
			out := *doc
			return &out, nil
		}
	}
	return nil, nil
}

func (q *fakeQueue) MarkSent(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failed == nil {
		q.failed = map[string]string{}
	}
	q.failed[id] = errMsg
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out []published
	err error
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestWorker_TopicFor(t *testing.T) {
	w := &Worker{}
	assert.Equal(t, "property.events.v1", w.topicFor("property.relisted"))
	assert.Equal(t, "relisting.events.v1", w.topicFor("relisting.cancellation_resolved"))
	assert.Equal(t, "plain.events.v1", w.topicFor("plain"))

	w.TopicPrefix = "staging."
	assert.Equal(t, "staging.booking.events.v1", w.topicFor("booking.cancelled"))
}

func TestWorker_DrainPublishesCloudEvents(t *testing.T) {
	occurred := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	q := &fakeQueue{docs: []*EventDocument{
		{ID: "e1", Name: "property.relisted", Aggregate: "p1", Payload: []byte(`{"PropertyID":"p1"}`), OccurredAt: occurred, State: StateNew, Headers: map[string]string{"traceparent": "00-abc"}},
		{ID: "e2", Name: "booking.cancelled", Aggregate: "b1", Payload: []byte(`{}`), OccurredAt: occurred, State: StateNew},
	}}
	p := &fakeProducer{}
	w := &Worker{Queue: q, Producer: p, ID: "w1"}

	require.NoError(t, w.drain(context.Background()))
	require.Len(t, p.out, 2)
	assert.Equal(t, []string{"e1", "e2"}, q.sent)

	first := p.out[0]
	assert.Equal(t, "property.events.v1", first.topic)
	assert.Equal(t, "p1", first.key)
	assert.Equal(t, "application/cloudevents+json", first.headers["content-type"])
	assert.Equal(t, "00-abc", first.headers["traceparent"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(first.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "e1", evt["id"])
	assert.Equal(t, "property.relisted.v1", evt["type"])
	assert.Equal(t, "app://weekrent", evt["source"])
	assert.Equal(t, "00-abc", evt["traceparent"])
	assert.Equal(t, map[string]any{"PropertyID": "p1"}, evt["data"])
}

func TestWorker_FailuresAreMarkedForRetry(t *testing.T) {
	q := &fakeQueue{docs: []*EventDocument{
		{ID: "bad", Name: "property.created", Payload: []byte(`not json`), State: StateNew},
		{ID: "e2", Name: "property.created", Payload: []byte(`{}`), State: StateNew},
	}}
	p := &fakeProducer{err: errors.New("broker down")}
	w := &Worker{Queue: q, Producer: p, Backoff: []time.Duration{time.Second}}

	require.NoError(t, w.drain(context.Background()))
	assert.Empty(t, q.sent)
	assert.Contains(t, q.failed, "bad")
	assert.Equal(t, "broker down", q.failed["e2"])
}

func TestWorker_NextRetryUsesLastBackoff(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, time.Minute}}
	before := time.Now()
	assert.WithinDuration(t, before.Add(time.Minute), w.nextRetry(7), time.Second)
	assert.WithinDuration(t, before.Add(time.Second), w.nextRetry(0), time.Second)
}

func TestWorker_RunRequiresDependencies(t *testing.T) {
	err := (&Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrWorkerNotConfigured)
}

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	return m.Called(ctx, topic, key, payload, headers).Error(0)
}

func TestWorker_RunRelaysOnWake(t *testing.T) {
	q := &fakeQueue{docs: []*EventDocument{
		{ID: "e1", Name: "relisting.cancellation_resolved", Aggregate: "b1", Payload: []byte(`{}`), State: StateNew},
	}}
	published := make(chan struct{})
	p := &mockProducer{}
	p.On("Publish", mock.Anything, "weekrent.relisting.events.v1", "b1", mock.Anything, mock.Anything).
		Return(nil).
		Run(func(mock.Arguments) { close(published) }).
		Once()

	wake := make(chan struct{}, 1)
	w := &Worker{Queue: q, Producer: p, Interval: time.Hour, TopicPrefix: "weekrent.", Wake: wake}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	wake <- struct{}{}
	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not relayed after wake")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	p.AssertExpectations(t)
}
