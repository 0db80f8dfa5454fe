// Package ide implements the editor state extractors: best-effort
// heuristics over the editor's rendered UI, built on the cdp evaluator.
// There is no internal editor API; everything here scrapes what the UI
// happens to show and degrades to "unknown"/"not found" results.
package ide

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"ibridge/internal/cdp"
	"ibridge/internal/domain/ports"
)

// dropdownSettleDelay is how long a picker dropdown gets to render after
// its trigger is clicked, before candidates are enumerated.
const dropdownSettleDelay = 600 * time.Millisecond

type evalFunc func(ctx context.Context, target *cdp.Target, script string, pred cdp.Predicate) (json.RawMessage, error)

// Automator implements ports.Automator against a debugging endpoint.
type Automator struct {
	discovery *cdp.Discovery
	product   string

	// Injection points for tests; production wiring uses the cdp package.
	resolveFn   func(ctx context.Context) (*cdp.Target, error)
	evalRead    evalFunc
	evalMutate  evalFunc
	settleDelay time.Duration
}

// New creates an Automator for the given discovery endpoint. product is
// the editor's product name as shown in window titles.
func New(discovery *cdp.Discovery, product string) *Automator {
	return &Automator{
		discovery:   discovery,
		product:     product,
		resolveFn:   discovery.ResolveEditorTarget,
		evalRead:    cdp.EvaluateAcrossContexts,
		evalMutate:  cdp.EvaluateMutating,
		settleDelay: dropdownSettleDelay,
	}
}

// resolveTarget finds the editor's main window, or nil when automation is
// unavailable. Discovery failures are absorbed: they mean "unavailable",
// not "broken".
func (a *Automator) resolveTarget(ctx context.Context) *cdp.Target {
	target, err := a.resolveFn(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("target discovery failed")
		return nil
	}
	return target
}

// Available reports whether a debuggable editor target is reachable.
func (a *Automator) Available(ctx context.Context) bool {
	return a.resolveTarget(ctx) != nil
}

// settle waits for the UI to catch up, honoring cancellation.
func (a *Automator) settle(ctx context.Context) {
	select {
	case <-time.After(a.settleDelay):
	case <-ctx.Done():
	}
}

var _ ports.Automator = (*Automator)(nil)
