package repository

import (
	"context"
	"time"

	"github.com/Shahil0511/OakMirror/internal/domain"
	"github.com/Shahil0511/OakMirror/pkg/pagination"
)

// UserRepository is the credential store.
type UserRepository interface {
	// Create inserts a new user. A taken email yields an error matching
	// apperrors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns apperrors.ErrNotFound when no user has the ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail looks up a normalized email and returns
	// apperrors.ErrNotFound when none matches.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns one page of users, newest first, and the total count.
	List(ctx context.Context, params pagination.Params) ([]domain.User, int, error)
}

// PostRepository persists posts. Soft-deleted posts are invisible to every
// read.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context, filter domain.PostFilter, params pagination.Params) ([]domain.Post, int, error)
	Update(ctx context.Context, post *domain.Post) error
	SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error
}

// RevocationStore remembers refresh tokens that must no longer be accepted.
type RevocationStore interface {
	// Revoke blocks token for ttl, after which it has expired anyway.
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	// Consume atomically claims token for ttl and reports false when it was
	// already claimed or revoked.
	Consume(ctx context.Context, token string, ttl time.Duration) (bool, error)
	// Release forgets token, making it usable again.
	Release(ctx context.Context, token string) error
}
