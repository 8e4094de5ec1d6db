package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shahil0511/OakMirror/internal/domain"
	"github.com/Shahil0511/OakMirror/internal/event"
	"github.com/Shahil0511/OakMirror/internal/repository"
	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
	"github.com/Shahil0511/OakMirror/pkg/middleware"
	"github.com/Shahil0511/OakMirror/pkg/pagination"
)

// PostService implements the business logic for posts.
type PostService struct {
	repo     repository.PostRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewPostService creates a new post service.
func NewPostService(repo repository.PostRepository, producer *event.Producer, logger *slog.Logger) *PostService {
	return &PostService{
		repo:     repo,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// CreatePostInput holds the parameters for creating a post.
type CreatePostInput struct {
	Title    string
	Content  string
	PostType domain.PostType
	Company  string
	Industry string
	JobTitle string
	Location string
	Tags     []string
}

// UpdatePostInput holds the fields to change. Nil fields are left alone.
type UpdatePostInput struct {
	Title    *string
	Content  *string
	PostType *domain.PostType
	Company  *string
	Industry *string
	JobTitle *string
	Location *string
	Tags     *[]string
}

// IsEmpty reports whether no field is set.
func (in UpdatePostInput) IsEmpty() bool {
	return in.Title == nil && in.Content == nil && in.PostType == nil &&
		in.Company == nil && in.Industry == nil && in.JobTitle == nil &&
		in.Location == nil && in.Tags == nil
}

// Create stores a new post authored by the caller.
func (s *PostService) Create(ctx context.Context, caller *middleware.Identity, input CreatePostInput) (*domain.Post, error) {
	postType := input.PostType
	if postType == "" {
		postType = domain.PostTypeGeneral
	}
	if !postType.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid post type %q", postType))
	}

	now := s.now().UTC()
	post := &domain.Post{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
		PostType:  postType,
		Company:   strings.TrimSpace(input.Company),
		Industry:  strings.TrimSpace(input.Industry),
		JobTitle:  strings.TrimSpace(input.JobTitle),
		Location:  strings.TrimSpace(input.Location),
		Tags:      normalizeTags(input.Tags),
		Publisher: caller.ID,
		CreatedBy: caller.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := s.producer.PublishPostCreated(ctx, post); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish post.created event",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", caller.ID),
	)
	return post, nil
}

// Get returns a live post.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidInput("invalid post id")
	}
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// List returns one page of live posts, newest first.
func (s *PostService) List(ctx context.Context, filter domain.PostFilter, params pagination.Params) (pagination.Result[domain.Post], error) {
	if filter.PostType != "" && !filter.PostType.IsValid() {
		return pagination.Result[domain.Post]{}, apperrors.InvalidInput(fmt.Sprintf("invalid post type %q", filter.PostType))
	}
	posts, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Result[domain.Post]{}, fmt.Errorf("list posts: %w", err)
	}
	return pagination.NewResult(posts, total, params), nil
}

// Update changes a post. Only its creator may do so.
func (s *PostService) Update(ctx context.Context, caller *middleware.Identity, id string, input UpdatePostInput) (*domain.Post, error) {
	if input.IsEmpty() {
		return nil, apperrors.InvalidInput("at least one field must be provided")
	}
	if input.PostType != nil && !input.PostType.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid post type %q", *input.PostType))
	}

	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.CanUpdate(caller.ID) {
		s.logger.WarnContext(ctx, "post update denied",
			slog.String("post_id", post.ID),
			slog.String("user_id", caller.ID),
		)
		return nil, apperrors.Forbidden("only the creator can update this post")
	}

	applyPostUpdate(post, input)
	post.UpdatedBy = &caller.ID
	post.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	if err := s.producer.PublishPostUpdated(ctx, post, caller.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish post.updated event",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "post updated",
		slog.String("post_id", post.ID),
		slog.String("user_id", caller.ID),
	)
	return post, nil
}

// Delete soft-deletes a post. The creator and admins may do so.
func (s *PostService) Delete(ctx context.Context, caller *middleware.Identity, id string) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !post.CanDelete(caller.ID, caller.Role) {
		s.logger.WarnContext(ctx, "post delete denied",
			slog.String("post_id", post.ID),
			slog.String("user_id", caller.ID),
		)
		return apperrors.Forbidden("only the creator or an admin can delete this post")
	}

	now := s.now().UTC()
	if err := s.repo.SoftDelete(ctx, post.ID, caller.ID, now); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if err := s.producer.PublishPostDeleted(ctx, post, caller.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish post.deleted event",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "post deleted",
		slog.String("post_id", post.ID),
		slog.String("user_id", caller.ID),
	)
	return nil
}

func applyPostUpdate(post *domain.Post, in UpdatePostInput) {
	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.PostType != nil {
		post.PostType = *in.PostType
	}
	if in.Company != nil {
		post.Company = strings.TrimSpace(*in.Company)
	}
	if in.Industry != nil {
		post.Industry = strings.TrimSpace(*in.Industry)
	}
	if in.JobTitle != nil {
		post.JobTitle = strings.TrimSpace(*in.JobTitle)
	}
	if in.Location != nil {
		post.Location = strings.TrimSpace(*in.Location)
	}
	if in.Tags != nil {
		post.Tags = normalizeTags(*in.Tags)
	}
}

// normalizeTags trims, drops blanks and removes duplicates, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
