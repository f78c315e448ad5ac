package parse

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChatCompleter is the slice of the OpenAI client used by the completion
// parser. *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const systemPrompt = `You are an order entry assistant for a wholesale distributor.
Split the user's order text into line items. Respond with ONLY a JSON array,
each element: {"raw": string, "quantity": number, "unit": string, "name": string, "price": number or null}.
"raw" is the exact span of the user's text the line item came from.
Units must be one of: case, box, pack, piece, carton, bottle, kg, g, l, ml.
"price" is a unit price only when the user typed one explicitly.`

// Completion parses order text with a chat-completion model, falling back to
// the local regex parser on any failure or timeout. The pipeline never blocks
// on the external service beyond the configured timeout.
type Completion struct {
	client   ChatCompleter
	model    string
	timeout  time.Duration
	fallback Parser
}

var _ Parser = (*Completion)(nil)

// NewCompletion wires a completion parser over the given client. A zero
// timeout defaults to 10s.
func NewCompletion(client ChatCompleter, model string, timeout time.Duration) *Completion {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Completion{
		client:   client,
		model:    model,
		timeout:  timeout,
		fallback: Local{},
	}
}

// Parse asks the model to structure the order text. Any error, timeout, or
// unusable response falls back to the local parser; the returned error is nil
// in that case because local parsing is total.
func (c *Completion) Parse(ctx context.Context, raw string) ([]CandidateLine, error) {
	lines, err := c.complete(ctx, raw)
	if err != nil {
		zctx.From(ctx).Warn("completion parse failed, using local parser", zap.Error(err))
		return c.fallback.Parse(ctx, raw)
	}
	if len(lines) == 0 {
		return c.fallback.Parse(ctx, raw)
	}
	return lines, nil
}

// completionLine mirrors the JSON shape requested from the model.
type completionLine struct {
	Raw      string      `json:"raw"`
	Quantity json.Number `json:"quantity"`
	Unit     string      `json:"unit"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
}

func (c *Completion) complete(ctx context.Context, raw string) ([]CandidateLine, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: raw},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	parsed, err := decodeCompletion(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	lines := make([]CandidateLine, 0, len(parsed))
	for _, cl := range parsed {
		line, ok := sanitize(cl)
		if !ok {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// decodeCompletion extracts the JSON array from the completion text. Models
// occasionally wrap the payload in prose or code fences, so the decoder takes
// the outermost bracket pair.
func decodeCompletion(content string) ([]completionLine, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("no JSON array in completion response")
	}

	var parsed []completionLine
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return nil, errors.Wrap(err, "decode completion response")
	}
	return parsed, nil
}

// sanitize coerces a model-produced line into a safe CandidateLine. Invalid
// quantities degrade to 1, unknown units to the generic unit, and
// non-positive prices are discarded.
func sanitize(cl completionLine) (CandidateLine, bool) {
	name := spaces.ReplaceAllString(strings.TrimSpace(cl.Name), " ")
	if name == "" {
		return CandidateLine{}, false
	}

	line := CandidateLine{
		Raw:      rawSpan(cl, name),
		Quantity: decimal.NewFromInt(1),
		Unit:     DefaultUnit,
		Name:     name,
	}
	if q, err := decimal.NewFromString(cl.Quantity.String()); err == nil && q.IsPositive() {
		line.Quantity = q
	}
	if canonical, ok := unitVocab[strings.ToLower(strings.TrimSpace(cl.Unit))]; ok {
		line.Unit = canonical
	}
	if p, err := decimal.NewFromString(cl.Price.String()); err == nil && p.IsPositive() {
		line.PriceHint = &p
	}
	line.Variations = nameVariations(name)
	return line, true
}

// rawSpan prefers the model-reported text span and reconstructs one from the
// structured fields when the model omitted it.
func rawSpan(cl completionLine, name string) string {
	if raw := spaces.ReplaceAllString(strings.TrimSpace(cl.Raw), " "); raw != "" {
		return raw
	}
	parts := make([]string, 0, 3)
	if q := cl.Quantity.String(); q != "" {
		parts = append(parts, q)
	}
	if u := strings.TrimSpace(cl.Unit); u != "" {
		parts = append(parts, u)
	}
	parts = append(parts, name)
	return strings.Join(parts, " ")
}
