package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/PostsGo/internal/domain"
	pkgkafka "github.com/utafrali/PostsGo/pkg/kafka"
	"github.com/utafrali/PostsGo/pkg/logger"
)

// Kafka topic constants for domain events.
const (
	TopicUserRegistered = "posts.user.registered"
	TopicUserDeleted    = "posts.user.deleted"
	TopicPostCreated    = "posts.post.created"
	TopicPostUpdated    = "posts.post.updated"
	TopicPostDeleted    = "posts.post.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeUser = "user"
	AggregateTypePost = "post"
)

// SourcePostsAPI identifies events originating from this service.
const SourcePostsAPI = "posts-api"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserDeletedData is the payload for a user.deleted event.
type UserDeletedData struct {
	ID string `json:"id"`
}

// PostData is the payload for post.created and post.updated events.
type PostData struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Content  string `json:"content"`
}

// PostDeletedData is the payload for a post.deleted event.
type PostDeletedData struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
}

// Sink is the part of *pkgkafka.Producer used to send events.
type Sink interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes domain events to Kafka.
type Producer struct {
	sink   Sink
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(sink Sink, logger *slog.Logger) *Producer {
	return &Producer{
		sink:   sink,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, UserRegisteredData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserDeleted, userID, AggregateTypeUser, UserDeletedData{ID: userID})
}

// PublishPostCreated publishes a post.created event.
func (p *Producer) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	return p.publish(ctx, TopicPostCreated, post.ID, AggregateTypePost, postData(post))
}

// PublishPostUpdated publishes a post.updated event.
func (p *Producer) PublishPostUpdated(ctx context.Context, post *domain.Post) error {
	return p.publish(ctx, TopicPostUpdated, post.ID, AggregateTypePost, postData(post))
}

// PublishPostDeleted publishes a post.deleted event.
func (p *Producer) PublishPostDeleted(ctx context.Context, post *domain.Post) error {
	return p.publish(ctx, TopicPostDeleted, post.ID, AggregateTypePost, PostDeletedData{
		ID:       post.ID,
		AuthorID: post.AuthorID,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	agg := pkgkafka.Aggregate{Type: aggregateType, ID: aggregateID}
	evt, err := pkgkafka.NewEvent(topic, agg, SourcePostsAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithActor(logger.UserIDFromContext(ctx))

	if err := p.sink.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "domain event published",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func postData(post *domain.Post) PostData {
	return PostData{
		ID:       post.ID,
		AuthorID: post.AuthorID,
		Content:  post.Content,
	}
}

// NoopPublisher discards every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishUserRegistered(context.Context, *domain.User) error { return nil }
func (NoopPublisher) PublishUserDeleted(context.Context, string) error          { return nil }
func (NoopPublisher) PublishPostCreated(context.Context, *domain.Post) error    { return nil }
func (NoopPublisher) PublishPostUpdated(context.Context, *domain.Post) error    { return nil }
func (NoopPublisher) PublishPostDeleted(context.Context, *domain.Post) error    { return nil }
