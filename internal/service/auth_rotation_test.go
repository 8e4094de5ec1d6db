package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shahil0511/OakMirror/internal/auth"
	"github.com/Shahil0511/OakMirror/internal/event"
	redisrepo "github.com/Shahil0511/OakMirror/internal/repository/redis"
	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
)

// newRedisBackedAuthService wires the auth service to a Redis revocation
// store on miniredis. A non-nil clock pins both token issuance and the
// service clock.
func newRedisBackedAuthService(t *testing.T, clock func() time.Time) (*AuthService, *mockUserRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	var opts []auth.Option
	if clock != nil {
		opts = append(opts, auth.WithClock(clock))
	}

	users := new(mockUserRepository)
	producer := event.NewProducer(&recordingPublisher{}, newTestLogger())
	svc := NewAuthService(users, newTestTokens(t, opts...), hasher,
		redisrepo.NewRevocationStore(client), producer, newTestLogger())
	if clock != nil {
		svc.now = clock
	}
	return svc, users
}

func TestRefresh_ConcurrentReplayHasOneWinner(t *testing.T) {
	svc, users := newRedisBackedAuthService(t, nil)
	user := storedUser(t, "pw")
	old := issuedAt(t, user, -time.Hour)

	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	var wins, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background(), old.Refresh)
			if err == nil {
				wins.Add(1)
				return
			}
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == "INVALID_TOKEN" {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(19), rejected.Load())
}

func TestLogin_AfterLogoutInSameSecondCanRefresh(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, users := newRedisBackedAuthService(t, func() time.Time { return fixed })
	ctx := context.Background()
	user := storedUser(t, "correct-horse")

	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	first, err := svc.Login(ctx, user.Email, "correct-horse")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, first.Tokens.Refresh))

	_, err = svc.Refresh(ctx, first.Tokens.Refresh)
	assertAppError(t, err, "INVALID_TOKEN", 401)

	second, err := svc.Login(ctx, user.Email, "correct-horse")
	require.NoError(t, err)
	require.Equal(t, first.Tokens.Refresh, second.Tokens.Refresh)

	pair, err := svc.Refresh(ctx, second.Tokens.Refresh)
	require.NoError(t, err)
	assert.Equal(t, second.Tokens.Refresh, pair.Refresh)

	// Refreshing within the same second hands back the same grant again.
	_, err = svc.Refresh(ctx, pair.Refresh)
	assert.NoError(t, err)
}

func TestRefresh_ServerFailureDoesNotBurnToken(t *testing.T) {
	svc, users := newRedisBackedAuthService(t, nil)
	ctx := context.Background()
	user := storedUser(t, "pw")
	old := issuedAt(t, user, -time.Hour)

	users.On("GetByID", mock.Anything, user.ID).Return(nil, errors.New("connection reset")).Once()
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	_, err := svc.Refresh(ctx, old.Refresh)
	require.Error(t, err)
	assert.Equal(t, 500, apperrors.HTTPStatus(err))

	_, err = svc.Refresh(ctx, old.Refresh)
	assert.NoError(t, err)

	_, err = svc.Refresh(ctx, old.Refresh)
	assertAppError(t, err, "INVALID_TOKEN", 401)
}
