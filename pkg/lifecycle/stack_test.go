package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type recorder struct {
	calls []string
}

func (r *recorder) resource(name string, acquireErr, releaseErr error) Func {
	return Func{
		ResourceName: name,
		AcquireFn: func(ctx context.Context) error {
			r.calls = append(r.calls, "acquire "+name)
			return acquireErr
		},
		ReleaseFn: func(ctx context.Context) error {
			r.calls = append(r.calls, "release "+name)
			return releaseErr
		},
	}
}

func TestStackReleasesInReverseOrder(t *testing.T) {
	rec := &recorder{}
	s := NewStack(nil, 0)
	ctx := context.Background()

	require.NoError(t, s.Acquire(ctx, rec.resource("server", nil, nil)))
	require.NoError(t, s.Acquire(ctx, rec.resource("session", nil, nil)))
	require.NoError(t, s.Acquire(ctx, rec.resource("airtable", nil, nil)))
	assert.Equal(t, 3, s.Len())

	require.NoError(t, s.Release(ctx))
	assert.Equal(t, []string{
		"acquire server", "acquire session", "acquire airtable",
		"release airtable", "release session", "release server",
	}, rec.calls)
}

func TestStackReleaseOnce(t *testing.T) {
	rec := &recorder{}
	s := NewStack(nil, 0)
	require.NoError(t, s.Acquire(context.Background(), rec.resource("server", nil, nil)))

	require.NoError(t, s.Release(context.Background()))
	require.NoError(t, s.Release(context.Background()))
	assert.Equal(t, []string{"acquire server", "release server"}, rec.calls)

	err := s.Acquire(context.Background(), rec.resource("late", nil, nil))
	assert.Error(t, err)
}

func TestStackFailedAcquireIsNotReleased(t *testing.T) {
	rec := &recorder{}
	s := NewStack(nil, 0)
	ctx := context.Background()

	require.NoError(t, s.Acquire(ctx, rec.resource("server", nil, nil)))
	boom := errors.New("connect refused")
	err := s.Acquire(ctx, rec.resource("session", boom, nil))
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.Release(ctx))
	assert.Equal(t, []string{"acquire server", "acquire session", "release server"}, rec.calls)
}

func TestStackCollectsReleaseErrors(t *testing.T) {
	rec := &recorder{}
	s := NewStack(nil, 0)
	ctx := context.Background()

	first := errors.New("close failed")
	second := errors.New("stop failed")
	require.NoError(t, s.Acquire(ctx, rec.resource("server", nil, second)))
	require.NoError(t, s.Acquire(ctx, rec.resource("session", nil, first)))

	err := s.Release(ctx)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, []string{"acquire server", "acquire session", "release session", "release server"}, rec.calls)
}

func TestStackReleaseUsesLiveContext(t *testing.T) {
	s := NewStack(nil, 0)
	var releaseCtxErr error
	require.NoError(t, s.Acquire(context.Background(), Func{
		ResourceName: "server",
		ReleaseFn: func(ctx context.Context) error {
			releaseCtxErr = ctx.Err()
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Release(ctx))
	assert.NoError(t, releaseCtxErr)
}

func TestStackAcquireWithCancelledContext(t *testing.T) {
	rec := &recorder{}
	s := NewStack(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Acquire(ctx, rec.resource("server", nil, nil))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.calls)
}
