package dispatch

import (
	"context"
	"fmt"

	"github.com/KathyFeiyang/cs152bots/triage/cachestore"
	"github.com/KathyFeiyang/cs152bots/triage/report"
)

type effectStep struct {
	name string
	do   func(context.Context, report.Target) error
}

func (d *Dispatcher) effectSteps(a report.Action) []effectStep {
	remove := effectStep{"remove-content", d.Transport.RemoveContent}
	switch a {
	case report.ActionRemoveContent:
		return []effectStep{remove}
	case report.ActionRemoveAndSuspend:
		return []effectStep{remove, {"suspend-account", func(ctx context.Context, t report.Target) error {
			return d.Transport.SuspendAccount(ctx, t, false)
		}}}
	case report.ActionRemoveAndBan:
		return []effectStep{remove, {"ban-account", func(ctx context.Context, t report.Target) error {
			return d.Transport.SuspendAccount(ctx, t, true)
		}}}
	case report.ActionWarnAuthor:
		return []effectStep{{"warn-account", d.Transport.WarnAccount}}
	default:
		return nil
	}
}

// applyEffect carries out each step of a moderation effect at most once. A step is claimed in
// the cache under the effect key before it runs, so a retried or concurrent effect skips it.
// A failed step gives up its claim.
func (d *Dispatcher) applyEffect(ctx context.Context, eff *report.Effect) error {
	steps := d.effectSteps(eff.Action)
	if len(steps) == 0 {
		return fmt.Errorf("unhandled moderation action: %s", eff.Action)
	}
	for _, step := range steps {
		key := eff.Key + "#" + step.name
		claimed := false
		if d.Cache != nil {
			ok, err := d.Cache.Claim(ctx, cachestore.NameEffect, key, effectStamp())
			if err != nil {
				d.Logger.Warn("effect claim failed, applying unguarded", "key", key, "err", err)
			} else if !ok {
				effectsApplied.WithLabelValues(step.name, "skipped").Inc()
				continue
			}
			claimed = err == nil
		}
		if err := step.do(ctx, eff.Target); err != nil {
			effectsApplied.WithLabelValues(step.name, "error").Inc()
			if claimed {
				if rerr := d.Cache.Release(ctx, cachestore.NameEffect, key); rerr != nil {
					d.Logger.Warn("failed to release effect claim", "key", key, "err", rerr)
				}
			}
			return fmt.Errorf("%s: %w", step.name, err)
		}
		effectsApplied.WithLabelValues(step.name, "ok").Inc()
		if d.Cache != nil && step.name == "remove-content" && eff.Target.Reference != "" {
			_ = d.Cache.Purge(ctx, cachestore.NameReference, eff.Target.Reference)
		}
	}
	return nil
}
