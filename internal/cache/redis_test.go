package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listingFixture struct {
	Items []string `json:"items"`
	Total int64    `json:"total"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, ttl), mr
}

func TestGetSetRoundtrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	stored := listingFixture{Items: []string{"a", "b"}, Total: 2}
	c.Set(ctx, "bookings:u1:10:0::", stored)

	var got listingFixture
	require.True(t, c.Get(ctx, "bookings:u1:10:0::", &got))
	assert.Equal(t, stored, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	var got listingFixture
	assert.False(t, c.Get(context.Background(), "bookings:absent", &got))
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	c.Set(ctx, "bookings:u1:10:0::", listingFixture{Total: 1})

	mr.FastForward(31 * time.Second)

	var got listingFixture
	assert.False(t, c.Get(ctx, "bookings:u1:10:0::", &got))
}

func TestInvalidatePattern(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, ListingKey("u1", 10, 0, "", ""), listingFixture{Total: 1})
	c.Set(ctx, ListingKey("u2", 10, 0, "client", "requested"), listingFixture{Total: 2})
	c.Set(ctx, "ratelimit:u1", listingFixture{Total: 3})

	c.InvalidatePattern(ctx, ListingPattern)

	var got listingFixture
	assert.False(t, c.Get(ctx, ListingKey("u1", 10, 0, "", ""), &got))
	assert.False(t, c.Get(ctx, ListingKey("u2", 10, 0, "client", "requested"), &got))

	// Keys outside the listing namespace survive.
	assert.True(t, mr.Exists("ratelimit:u1"))
}

func TestListingKeyIncorporatesEveryFilter(t *testing.T) {
	base := ListingKey("u1", 10, 0, "", "")

	assert.NotEqual(t, base, ListingKey("u2", 10, 0, "", ""))
	assert.NotEqual(t, base, ListingKey("u1", 20, 0, "", ""))
	assert.NotEqual(t, base, ListingKey("u1", 10, 10, "", ""))
	assert.NotEqual(t, base, ListingKey("u1", 10, 0, "client", ""))
	assert.NotEqual(t, base, ListingKey("u1", 10, 0, "", "accepted"))
}
