package actions

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	"seidefi/pkg/llm"
)

// IntentExtractor resolves messages no validator claimed; llm.Extractor
// satisfies it.
type IntentExtractor interface {
	Extract(ctx context.Context, message string) (*llm.Intent, error)
}

// Registry holds the action catalog and dispatches messages to the first
// matching action, falling back to LLM intent extraction.
type Registry struct {
	actions   []Action
	byName    map[string]Action
	extractor IntentExtractor
}

// NewRegistry builds an empty registry. The extractor may be nil; dispatch
// then relies on validators alone.
func NewRegistry(extractor IntentExtractor) *Registry {
	return &Registry{byName: make(map[string]Action), extractor: extractor}
}

// Register appends an action. Registration order is dispatch priority.
func (r *Registry) Register(a Action) {
	r.actions = append(r.actions, a)
	r.byName[a.Name()] = a
}

// Specs describes the catalog for intent-extraction prompts.
func (r *Registry) Specs() []llm.ActionSpec {
	specs := make([]llm.ActionSpec, 0, len(r.actions))
	for _, a := range r.actions {
		specs = append(specs, llm.ActionSpec{
			Name:        a.Name(),
			Description: a.Description(),
			Params:      a.ParamNames(),
		})
	}
	return specs
}

// Dispatch routes a message and returns its single terminal Result. A
// message nothing matches yields an explanatory Result, never a nil one.
func (r *Registry) Dispatch(ctx context.Context, text string) *Result {
	msg := Message{Text: text}
	for _, a := range r.actions {
		if a.Validate(msg) {
			return r.run(ctx, a, msg)
		}
	}

	if r.extractor != nil {
		intent, err := r.extractor.Extract(ctx, text)
		switch {
		case errors.Is(err, llm.ErrNoIntent):
			// fall through to the catch-all reply
		case err != nil:
			logx.WithContext(ctx).Errorf("actions: intent extraction failed: %v", err)
		default:
			if a, ok := r.byName[intent.Action]; ok {
				msg.Params = intent.Params
				return r.run(ctx, a, msg)
			}
		}
	}

	return &Result{
		Text:  "I couldn't match that request to anything I can do. Try asking for a transfer, swap, perp trade, funding-rate scan, rebalance, IL hedge, or portfolio status.",
		Error: "no matching action",
	}
}

// run executes one action, converting a panic into a terminal error Result
// so a misbehaving handler cannot take the agent down.
func (r *Registry) run(ctx context.Context, a Action, msg Message) (res *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.WithContext(ctx).Errorf("actions: %s panicked: %v", a.Name(), rec)
			res = errorResult("action %s failed unexpectedly", a.Name())
		}
	}()

	res = a.Execute(ctx, msg)
	if res == nil {
		res = errorResult("action %s produced no result", a.Name())
	}
	if res.Error != "" {
		logx.WithContext(ctx).Infof("actions: %s returned user error: %s", a.Name(), res.Error)
	}
	return res
}
