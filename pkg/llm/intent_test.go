package llm

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActions = []ActionSpec{
	{Name: "transfer", Description: "send tokens to an address", Params: []string{"token", "amount", "recipient"}},
	{Name: "swap", Description: "swap one token for another", Params: []string{"from", "to", "amount"}},
}

func extractorWith(t *testing.T, responseContent string) *Extractor {
	t.Helper()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(responseContent)))
	})
	return NewExtractor(client, testActions)
}

func TestExtractIntent(t *testing.T) {
	e := extractorWith(t, `{"action":"swap","params":{"from":"SEI","to":"USDC","amount":"100"},"confidence":0.92}`)

	intent, err := e.Extract(context.Background(), "swap 100 sei into usdc please")
	require.NoError(t, err)
	assert.Equal(t, "swap", intent.Action)
	assert.Equal(t, "SEI", intent.Params["from"])
	assert.Equal(t, "100", intent.Params["amount"])
}

func TestExtractRejectsLowConfidence(t *testing.T) {
	e := extractorWith(t, `{"action":"swap","confidence":0.2}`)
	_, err := e.Extract(context.Background(), "maybe do something")
	assert.ErrorIs(t, err, ErrNoIntent)
}

func TestExtractRejectsUnknownAction(t *testing.T) {
	e := extractorWith(t, `{"action":"stake","confidence":0.95}`)
	_, err := e.Extract(context.Background(), "stake my tokens")
	assert.ErrorIs(t, err, ErrNoIntent)
}

func TestExtractRejectsNone(t *testing.T) {
	e := extractorWith(t, `{"action":"none","confidence":0}`)
	_, err := e.Extract(context.Background(), "how is the weather")
	assert.ErrorIs(t, err, ErrNoIntent)
}

func TestExtractEmptyMessage(t *testing.T) {
	e := extractorWith(t, `{}`)
	_, err := e.Extract(context.Background(), "   ")
	assert.Error(t, err)
}

func TestGenerateSchemaForIntent(t *testing.T) {
	schema, err := GenerateSchema(Intent{})
	require.NoError(t, err)

	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "action")
	assert.Contains(t, props, "confidence")
	assert.Equal(t, "number", props["confidence"].(map[string]any)["type"])

	required := schema["required"].([]string)
	assert.Contains(t, required, "action")
	assert.NotContains(t, required, "params", "omitempty fields are optional")
}
