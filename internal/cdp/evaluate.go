package cdp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// contextSettleDelay is how long to wait after enabling context-creation
// notifications before evaluating. Execution contexts are reported
// asynchronously and the editor's embedded views take a moment to appear.
const contextSettleDelay = 500 * time.Millisecond

// Predicate decides whether an evaluation result qualifies as the answer.
type Predicate func(value json.RawMessage) bool

// DefaultPredicate accepts any non-null value. If the value is an object
// carrying a "found" field, that field must be truthy.
func DefaultPredicate(value json.RawMessage) bool {
	if len(value) == 0 || string(value) == "null" {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(value, &obj); err == nil {
		if found, ok := obj["found"]; ok {
			return string(found) == "true"
		}
	}
	return true
}

type evaluateParams struct {
	Expression    string `json:"expression"`
	ReturnByValue bool   `json:"returnByValue"`
	ContextID     int64  `json:"contextId,omitempty"`
}

type evaluateResult struct {
	Result struct {
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text string `json:"text"`
	} `json:"exceptionDetails"`
}

// EvaluateAcrossContexts runs script in every known execution context of
// target, in discovery order, and returns the first result satisfying
// pred (DefaultPredicate when nil). Per-context failures are swallowed
// and evaluation continues. Exhausting all contexts without a match
// yields (nil, nil), not an error.
//
// One fresh connection is opened for the whole sweep and closed before
// returning.
func EvaluateAcrossContexts(ctx context.Context, target *Target, script string, pred Predicate) (json.RawMessage, error) {
	return evaluateAcrossContexts(ctx, target, script, pred, ReadCallTimeout)
}

// EvaluateMutating is EvaluateAcrossContexts with the longer deadline used
// for scripts that mutate editor state (clicks, key dispatch).
func EvaluateMutating(ctx context.Context, target *Target, script string, pred Predicate) (json.RawMessage, error) {
	return evaluateAcrossContexts(ctx, target, script, pred, MutateCallTimeout)
}

func evaluateAcrossContexts(ctx context.Context, target *Target, script string, pred Predicate, callTimeout time.Duration) (json.RawMessage, error) {
	if pred == nil {
		pred = DefaultPredicate
	}

	var mu sync.Mutex
	var contextIDs []int64

	conn, err := Dial(target.DebuggerURL, func(method string, params json.RawMessage) {
		if method != "Runtime.executionContextCreated" {
			return
		}
		var note struct {
			Context struct {
				ID int64 `json:"id"`
			} `json:"context"`
		}
		if err := json.Unmarshal(params, &note); err != nil || note.Context.ID == 0 {
			return
		}
		mu.Lock()
		contextIDs = append(contextIDs, note.Context.ID)
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	// Runtime.enable replays executionContextCreated for existing contexts.
	if _, err := conn.Call(ctx, "Runtime.enable", nil, ReadCallTimeout); err != nil {
		return nil, err
	}

	select {
	case <-time.After(contextSettleDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	mu.Lock()
	ids := make([]int64, len(contextIDs))
	copy(ids, contextIDs)
	mu.Unlock()

	if len(ids) == 0 {
		// No contexts reported; fall back to the default context.
		ids = []int64{0}
	}

	for _, id := range ids {
		params := evaluateParams{Expression: script, ReturnByValue: true}
		if id != 0 {
			params.ContextID = id
		}

		raw, err := conn.Call(ctx, "Runtime.evaluate", params, callTimeout)
		if err != nil {
			log.Debug().Err(err).Int64("context_id", id).Msg("evaluate failed, trying next context")
			continue
		}

		var res evaluateResult
		if err := json.Unmarshal(raw, &res); err != nil {
			log.Debug().Err(err).Int64("context_id", id).Msg("unparseable evaluate result")
			continue
		}
		if res.ExceptionDetails != nil {
			log.Debug().Str("text", res.ExceptionDetails.Text).Int64("context_id", id).Msg("script threw in context")
			continue
		}

		if pred(res.Result.Value) {
			return res.Result.Value, nil
		}
	}

	return nil, nil
}
