package cachestore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type cachedTarget struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func TestMemCacheStoreJSON(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(100, time.Minute)

	var out cachedTarget
	ok, err := GetJSON(ctx, cs, NameReference, "1/2/3", &out)
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(SetJSON(ctx, cs, NameReference, "1/2/3", cachedTarget{MessageID: "3", Content: "hello"}))
	ok, err = GetJSON(ctx, cs, NameReference, "1/2/3", &out)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("hello", out.Content)

	// names are separate namespaces
	v, err := cs.Get(ctx, NameEffect, "1/2/3")
	assert.NoError(err)
	assert.Empty(v)

	assert.NoError(cs.Purge(ctx, NameReference, "1/2/3"))
	ok, err = GetJSON(ctx, cs, NameReference, "1/2/3", &out)
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(cs.Set(ctx, NameReference, "bad", "{not json"))
	_, err = GetJSON(ctx, cs, NameReference, "bad", &out)
	assert.Error(err)
}

func TestMemCacheStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, 10*time.Millisecond)
	assert.NoError(cs.Set(ctx, NameEffect, "r1/remove-content", "1"))
	v, err := cs.Get(ctx, NameEffect, "r1/remove-content")
	assert.NoError(err)
	assert.Equal("1", v)

	time.Sleep(50 * time.Millisecond)
	v, err = cs.Get(ctx, NameEffect, "r1/remove-content")
	assert.NoError(err)
	assert.Empty(v)
}

func TestMemCacheStoreClaim(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(100, time.Minute)

	// claims and cached values don't share keys
	assert.NoError(cs.Set(ctx, NameEffect, "r1/warn#warn-account", "x"))
	ok, err := cs.Claim(ctx, NameEffect, "r1/warn#warn-account", "1")
	assert.NoError(err)
	assert.True(ok)

	ok, err = cs.Claim(ctx, NameEffect, "r1/warn#warn-account", "2")
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(cs.Release(ctx, NameEffect, "r1/warn#warn-account"))
	ok, err = cs.Claim(ctx, NameEffect, "r1/warn#warn-account", "3")
	assert.NoError(err)
	assert.True(ok)
}

func TestMemCacheStoreClaimConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(100, time.Minute)
	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := cs.Claim(ctx, NameEffect, "r1/ban#ban-account", "1")
			assert.NoError(err)
			if ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(int32(1), won.Load())
}

func TestRedisCacheStore(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	cs, err := NewRedisCacheStore("redis://localhost:6379/0", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	assert.NoError(cs.Set(ctx, NameEffect, "r1/warn-author", "1"))
	v, err := cs.Get(ctx, NameEffect, "r1/warn-author")
	assert.NoError(err)
	assert.Equal("1", v)
	assert.NoError(cs.Purge(ctx, NameEffect, "r1/warn-author"))

	ok, err := cs.Claim(ctx, NameEffect, "r1/warn-author#warn-account", "1")
	assert.NoError(err)
	assert.True(ok)
	ok, err = cs.Claim(ctx, NameEffect, "r1/warn-author#warn-account", "1")
	assert.NoError(err)
	assert.False(ok)
	assert.NoError(cs.Release(ctx, NameEffect, "r1/warn-author#warn-account"))
}
