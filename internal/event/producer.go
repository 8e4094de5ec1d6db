package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Shahil0511/OakMirror/internal/domain"
	pkgkafka "github.com/Shahil0511/OakMirror/pkg/kafka"
	"github.com/Shahil0511/OakMirror/pkg/logger"
)

// Topics double as event types.
const (
	TopicUserRegistered = "oakmirror.user.registered"
	TopicPostCreated    = "oakmirror.post.created"
	TopicPostUpdated    = "oakmirror.post.updated"
	TopicPostDeleted    = "oakmirror.post.deleted"
)

const (
	AggregateTypeUser = "user"
	AggregateTypePost = "post"
)

// UserRegisteredData is the payload of oakmirror.user.registered. It never
// carries the password hash.
type UserRegisteredData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// PostData is the payload of the post events.
type PostData struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	PostType  string   `json:"post_type"`
	Company   string   `json:"company,omitempty"`
	Tags      []string `json:"tags"`
	ActorID   string   `json:"actor_id"`
	CreatedBy string   `json:"created_by"`
}

// Producer publishes OakMirror domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishUserRegistered publishes oakmirror.user.registered.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}
	return p.publish(ctx, TopicUserRegistered, AggregateTypeUser, user.ID, data)
}

// PublishPostCreated publishes oakmirror.post.created.
func (p *Producer) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	return p.publish(ctx, TopicPostCreated, AggregateTypePost, post.ID, postData(post, post.CreatedBy))
}

// PublishPostUpdated publishes oakmirror.post.updated.
func (p *Producer) PublishPostUpdated(ctx context.Context, post *domain.Post, actorID string) error {
	return p.publish(ctx, TopicPostUpdated, AggregateTypePost, post.ID, postData(post, actorID))
}

// PublishPostDeleted publishes oakmirror.post.deleted.
func (p *Producer) PublishPostDeleted(ctx context.Context, post *domain.Post, actorID string) error {
	return p.publish(ctx, TopicPostDeleted, AggregateTypePost, post.ID, postData(post, actorID))
}

// Close releases the underlying publisher.
func (p *Producer) Close() error {
	return p.publisher.Close()
}

func (p *Producer) publish(ctx context.Context, topic, aggregateType, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateType, aggregateID, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func postData(post *domain.Post, actorID string) PostData {
	return PostData{
		ID:        post.ID,
		Title:     post.Title,
		PostType:  string(post.PostType),
		Company:   post.Company,
		Tags:      post.Tags,
		ActorID:   actorID,
		CreatedBy: post.CreatedBy,
	}
}
