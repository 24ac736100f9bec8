package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	// resolved message references, keyed by the reference text
	NameReference = "reference"
	// effect steps which have been claimed for execution, keyed by effect key and step
	NameEffect = "effect"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error

	// Claim stores val under key only if no claim exists there yet, atomically across every
	// process sharing the store. Returns false when someone else already holds the claim.
	Claim(ctx context.Context, name, key string, val string) (bool, error)
	// Release drops a claim, so the work it guarded can be attempted again.
	Release(ctx context.Context, name, key string) error
}

// GetJSON decodes a cached value into out. Returns false on a cache miss.
func GetJSON(ctx context.Context, cs CacheStore, name, key string, out any) (bool, error) {
	raw, err := cs.Get(ctx, name, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decoding cached %s: %w", name, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, cs CacheStore, name, key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return cs.Set(ctx, name, key, string(b))
}

func namespaced(name, key string) string {
	return name + "/" + key
}
