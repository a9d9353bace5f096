package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docsync/internal/cache/cachetest"
)

func TestSetGet_Upsert(t *testing.T) {
	r := NewSQLiteRepository(cachetest.Open(t))
	ctx := context.Background()

	v, ok, err := r.Get(ctx, KeyPullIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)

	require.NoError(t, r.Set(ctx, KeyPullIdentity, "alice"))
	require.NoError(t, r.Set(ctx, KeyPullIdentity, "bob"))

	v, ok, err = r.Get(ctx, KeyPullIdentity)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", v)

	require.NoError(t, r.Delete(ctx, KeyPullIdentity))
	require.NoError(t, r.Delete(ctx, KeyPullIdentity))
	_, ok, err = r.Get(ctx, KeyPullIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTimes(t *testing.T) {
	r := NewSQLiteRepository(cachetest.Open(t))
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 9, 30, 0, 123, time.FixedZone("BRT", -3*3600))
	require.NoError(t, r.SetTime(ctx, KeyLastPullAt, at))

	got, ok, err := r.GetTime(ctx, KeyLastPullAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))

	require.NoError(t, r.Set(ctx, "garbage", "yesterday"))
	_, _, err = r.GetTime(ctx, "garbage")
	require.Error(t, err)

	_, ok, err = r.GetTime(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet_DBErrorWrapped(t *testing.T) {
	db := cachetest.Open(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())

	_, _, err := r.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get metadata[k]")

	err = r.Set(context.Background(), "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set metadata[k]")
}
