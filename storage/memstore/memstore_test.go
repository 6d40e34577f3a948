package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetMissingKeyReturnsNil(t *testing.T) {
	s := New()
	v, err := s.Get(context.Background(), "session:did:plc:missing")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete(ctx, "k"))
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := New()
	s.nowTime = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	now = now.Add(time.Minute + time.Second)
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestExpiryCleanupKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s := New()

	// The clock hook fires between the expiry check and the cleanup
	// delete, where a concurrent Set can land a fresh value.
	racing := false
	s.nowTime = func() time.Time {
		if racing {
			racing = false
			require.NoError(t, s.Set(ctx, "k", []byte("fresh"), 0))
		}
		return now
	}

	require.NoError(t, s.Set(ctx, "k", []byte("stale"), time.Minute))
	now = base.Add(2 * time.Minute)

	racing = true
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, v)

	// The fresh value must survive the expired entry's cleanup.
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("fresh"), v)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Set(ctx, "k", []byte("abc"), 0))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'x'

	v2, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), v2)
}
