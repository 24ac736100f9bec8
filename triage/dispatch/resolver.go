package dispatch

import (
	"context"
	"strings"

	"github.com/KathyFeiyang/cs152bots/triage/cachestore"
	"github.com/KathyFeiyang/cs152bots/triage/report"
)

// resolves message references through the transport, caching successful lookups
type cachingResolver struct {
	d *Dispatcher
}

func (d *Dispatcher) resolver() report.Resolver {
	if d.Cache == nil {
		return d.Transport
	}
	return cachingResolver{d: d}
}

func (c cachingResolver) ResolveReference(ctx context.Context, ref string) (*report.Target, error) {
	ref = strings.TrimSpace(ref)
	var target report.Target
	ok, err := cachestore.GetJSON(ctx, c.d.Cache, cachestore.NameReference, ref, &target)
	if err != nil {
		c.d.Logger.Warn("reference cache lookup failed", "ref", ref, "err", err)
	} else if ok {
		return &target, nil
	}

	// concurrent lookups of the same reference share one transport call
	v, err, _ := c.d.refLookups.Do(ref, func() (any, error) {
		t, err := c.d.Transport.ResolveReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		if err := cachestore.SetJSON(ctx, c.d.Cache, cachestore.NameReference, ref, t); err != nil {
			c.d.Logger.Warn("failed to cache reference", "ref", ref, "err", err)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	// callers may hold on to the target; each gets its own copy
	t := *v.(*report.Target)
	return &t, nil
}
