package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoIntent reports that the model could not map a message to any
// registered action with usable confidence.
var ErrNoIntent = errors.New("llm: no matching action for message")

// minIntentConfidence is the floor below which an extraction is discarded.
const minIntentConfidence = 0.5

// Intent is the structured interpretation of a user message.
type Intent struct {
	Action     string            `json:"action" description:"name of the action to run, or \"none\" if nothing matches"`
	Params     map[string]string `json:"params,omitempty" description:"parameter values extracted from the message, keyed by parameter name"`
	Confidence float64           `json:"confidence" description:"confidence in the mapping, 0 to 1"`
}

// ActionSpec describes one dispatchable action for the extraction prompt.
type ActionSpec struct {
	Name        string
	Description string
	Params      []string
}

// Extractor maps free-form messages onto registered actions.
type Extractor struct {
	client  *Client
	actions []ActionSpec
	known   map[string]struct{}
}

// NewExtractor builds an extractor over the given action catalog.
func NewExtractor(client *Client, actions []ActionSpec) *Extractor {
	known := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		known[a.Name] = struct{}{}
	}
	return &Extractor{client: client, actions: actions, known: known}
}

const intentSystemPrompt = `You map a user's message onto exactly one of the known actions below.
Extract parameter values verbatim from the message; never invent values.
If no action fits, answer with action "none" and confidence 0.

Known actions:
%s`

func (e *Extractor) catalog() string {
	var b strings.Builder
	for _, a := range e.actions {
		fmt.Fprintf(&b, "- %s: %s", a.Name, a.Description)
		if len(a.Params) > 0 {
			fmt.Fprintf(&b, " (params: %s)", strings.Join(a.Params, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Extract asks the model which action the message intends and with which
// parameters. Unknown actions and low-confidence mappings return ErrNoIntent.
func (e *Extractor) Extract(ctx context.Context, message string) (*Intent, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("llm: message cannot be empty")
	}

	var intent Intent
	system := fmt.Sprintf(intentSystemPrompt, e.catalog())
	if err := e.client.CompleteStructured(ctx, system, message, "intent", &intent); err != nil {
		return nil, err
	}

	if intent.Action == "" || intent.Action == "none" || intent.Confidence < minIntentConfidence {
		return nil, ErrNoIntent
	}
	if _, ok := e.known[intent.Action]; !ok {
		return nil, fmt.Errorf("%w: model proposed unknown action %q", ErrNoIntent, intent.Action)
	}
	return &intent, nil
}
