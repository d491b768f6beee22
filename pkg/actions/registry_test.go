package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seidefi/pkg/llm"
)

type stubAction struct {
	name     string
	match    bool
	executed *Message
	result   *Result
	panics   bool
}

func (s *stubAction) Name() string          { return s.name }
func (s *stubAction) Description() string   { return "stub" }
func (s *stubAction) ParamNames() []string  { return []string{"p"} }
func (s *stubAction) Validate(Message) bool { return s.match }

func (s *stubAction) Execute(_ context.Context, msg Message) *Result {
	if s.panics {
		panic("boom")
	}
	s.executed = &msg
	return s.result
}

type stubExtractor struct {
	intent *llm.Intent
	err    error
}

func (s *stubExtractor) Extract(context.Context, string) (*llm.Intent, error) {
	return s.intent, s.err
}

func TestDispatchFirstMatchWins(t *testing.T) {
	first := &stubAction{name: "first", match: true, result: textResult("first")}
	second := &stubAction{name: "second", match: true, result: textResult("second")}
	r := NewRegistry(nil)
	r.Register(first)
	r.Register(second)

	res := r.Dispatch(context.Background(), "anything")
	assert.Equal(t, "first", res.Text)
	assert.Nil(t, second.executed, "later registrations must not run")
}

func TestDispatchFallsBackToIntentExtraction(t *testing.T) {
	target := &stubAction{name: "swap", result: textResult("done")}
	r := NewRegistry(&stubExtractor{intent: &llm.Intent{
		Action: "swap",
		Params: map[string]string{"amount": "100"},
	}})
	r.Register(target)

	res := r.Dispatch(context.Background(), "trade a bit for me")
	assert.Equal(t, "done", res.Text)
	require.NotNil(t, target.executed)
	assert.Equal(t, "100", target.executed.Param("amount"), "intent params reach the handler")
}

func TestDispatchNoMatchWithoutExtractor(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubAction{name: "a"})

	res := r.Dispatch(context.Background(), "gibberish")
	assert.Equal(t, "no matching action", res.Error)
	assert.NotEmpty(t, res.Text, "catch-all reply must explain the capabilities")
}

func TestDispatchNoIntentMatch(t *testing.T) {
	r := NewRegistry(&stubExtractor{err: llm.ErrNoIntent})
	r.Register(&stubAction{name: "a"})

	res := r.Dispatch(context.Background(), "how is the weather")
	assert.Equal(t, "no matching action", res.Error)
}

func TestDispatchExtractorFailureIsNonFatal(t *testing.T) {
	r := NewRegistry(&stubExtractor{err: errors.New("llm unavailable")})
	r.Register(&stubAction{name: "a"})

	res := r.Dispatch(context.Background(), "do the thing")
	require.NotNil(t, res)
	assert.Equal(t, "no matching action", res.Error)
}

func TestDispatchRecoversPanic(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubAction{name: "explosive", match: true, panics: true})

	res := r.Dispatch(context.Background(), "go")
	require.NotNil(t, res)
	assert.Contains(t, res.Error, "explosive")
}

func TestDispatchNilResultBecomesError(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubAction{name: "empty", match: true, result: nil})

	res := r.Dispatch(context.Background(), "go")
	require.NotNil(t, res)
	assert.Contains(t, res.Error, "empty")
}

func TestSpecs(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubAction{name: "a"})
	r.Register(&stubAction{name: "b"})

	specs := r.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "a", specs[0].Name)
	assert.Equal(t, []string{"p"}, specs[0].Params)
}
