package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shahil0511/OakMirror/internal/domain"
	pkgkafka "github.com/Shahil0511/OakMirror/pkg/kafka"
	"github.com/Shahil0511/OakMirror/pkg/logger"
)

type recordingPublisher struct {
	topics []string
	events []*pkgkafka.Event
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func newTestProducer() (*Producer, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewProducer(pub, slog.New(slog.NewTextHandler(io.Discard, nil))), pub
}

func TestPublishUserRegistered(t *testing.T) {
	p, pub := newTestProducer()
	ctx := logger.WithCorrelationID(context.Background(), "corr-9")

	user := &domain.User{ID: "u-1", Email: "ada@example.com", PasswordHash: "$2a$secret", FirstName: "Ada", Role: "user"}
	require.NoError(t, p.PublishUserRegistered(ctx, user))

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, TopicUserRegistered, pub.topics[0])
	assert.Equal(t, TopicUserRegistered, e.Type)
	assert.Equal(t, "u-1", e.AggregateID)
	assert.Equal(t, AggregateTypeUser, e.AggregateType)
	assert.Equal(t, "corr-9", e.CorrelationID)
	assert.NotContains(t, string(e.Data), "secret")

	var data UserRegisteredData
	require.NoError(t, e.DecodeData(&data))
	assert.Equal(t, "ada@example.com", data.Email)
}

func TestPublishPostEvents(t *testing.T) {
	p, pub := newTestProducer()
	ctx := context.Background()
	post := &domain.Post{ID: "p-1", Title: "Hi", PostType: domain.PostTypeNews, CreatedBy: "u-1", Tags: []string{"go"}}

	require.NoError(t, p.PublishPostCreated(ctx, post))
	require.NoError(t, p.PublishPostUpdated(ctx, post, "u-1"))
	require.NoError(t, p.PublishPostDeleted(ctx, post, "admin-1"))

	assert.Equal(t, []string{TopicPostCreated, TopicPostUpdated, TopicPostDeleted}, pub.topics)

	var data PostData
	require.NoError(t, pub.events[2].DecodeData(&data))
	assert.Equal(t, "admin-1", data.ActorID)
	assert.Equal(t, "u-1", data.CreatedBy)
	assert.Equal(t, "news", data.PostType)
}

func TestPublish_ErrorIsWrapped(t *testing.T) {
	p, pub := newTestProducer()
	pub.err = errors.New("circuit breaker is open")

	err := p.PublishPostCreated(context.Background(), &domain.Post{ID: "p-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicPostCreated)
	assert.ErrorIs(t, err, pub.err)
}

func TestProducer_Close(t *testing.T) {
	p, pub := newTestProducer()
	require.NoError(t, p.Close())
	assert.True(t, pub.closed)
}

func TestProducer_WithNoopPublisher(t *testing.T) {
	p := NewProducer(pkgkafka.NoopPublisher{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, p.PublishUserRegistered(context.Background(), &domain.User{ID: "u-1"}))
}
