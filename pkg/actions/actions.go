// Package actions exposes the agent's DeFi capabilities as dispatchable
// actions: a cheap text validator plus a handler that talks to the chain,
// the DEX venues, the perp providers and the risk engines. Every invocation
// produces exactly one terminal Result for the host framework.
package actions

import (
	"context"
	"fmt"
)

// Message is one inbound user request. Params carries values recovered by
// LLM intent extraction when regex parsing cannot handle the phrasing.
type Message struct {
	Text   string
	Params map[string]string
}

// Param returns the extracted parameter for key, empty when absent.
func (m Message) Param(key string) string {
	if m.Params == nil {
		return ""
	}
	return m.Params[key]
}

// Result is the single terminal outcome of an action invocation. Error is a
// user-facing failure description; the process-level error path stays inside
// the handler.
type Result struct {
	Text    string
	Content map[string]any
	Error   string
}

// Action is one dispatchable capability.
type Action interface {
	Name() string
	Description() string
	ParamNames() []string
	// Validate is a cheap keyword/regex check deciding whether this action
	// should handle the message.
	Validate(msg Message) bool
	// Execute runs the action. It must return a non-nil Result and never
	// panic; collaborator failures become user-facing Result errors.
	Execute(ctx context.Context, msg Message) *Result
}

func textResult(format string, args ...any) *Result {
	return &Result{Text: fmt.Sprintf(format, args...)}
}

func errorResult(format string, args ...any) *Result {
	msg := fmt.Sprintf(format, args...)
	return &Result{Text: msg, Error: msg}
}
