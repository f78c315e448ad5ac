package parse

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	content string
	err     error
	calls   int
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestCompletionParsesStructuredResponse(t *testing.T) {
	client := &fakeCompleter{content: `Here you go:
[{"raw": "10 cases watermelon adalya $250", "quantity": 10, "unit": "case", "name": "watermelon adalya", "price": 250},
 {"raw": "2 boxes double apple", "quantity": 2, "unit": "box", "name": "double apple", "price": null}]`}

	p := NewCompletion(client, "gpt-4o-mini", time.Second)
	lines, err := p.Parse(context.Background(), "10 cases watermelon adalya $250, 2 boxes double apple")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "10 cases watermelon adalya $250", lines[0].Raw)
	assert.True(t, lines[0].Quantity.Equal(d("10")))
	assert.Equal(t, "case", lines[0].Unit)
	assert.Equal(t, "watermelon adalya", lines[0].Name)
	require.NotNil(t, lines[0].PriceHint)
	assert.True(t, lines[0].PriceHint.Equal(d("250")))

	assert.Equal(t, "2 boxes double apple", lines[1].Raw)
	assert.Equal(t, "double apple", lines[1].Name)
	assert.Nil(t, lines[1].PriceHint)
}

func TestCompletionReconstructsMissingRawSpan(t *testing.T) {
	client := &fakeCompleter{content: `[{"quantity": 3, "unit": "box", "name": "grape mint", "price": null}]`}

	p := NewCompletion(client, "gpt-4o-mini", time.Second)
	lines, err := p.Parse(context.Background(), "3 boxes grape mint")
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, "3 box grape mint", lines[0].Raw)
}

func TestCompletionFallsBackOnError(t *testing.T) {
	client := &fakeCompleter{err: errors.New("rate limited")}

	p := NewCompletion(client, "gpt-4o-mini", time.Second)
	lines, err := p.Parse(context.Background(), "2 cases mint")
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, "mint", lines[0].Name)
	assert.Equal(t, "case", lines[0].Unit)
	assert.Equal(t, 1, client.calls)
}

func TestCompletionFallsBackOnGarbageResponse(t *testing.T) {
	for _, content := range []string{"sorry, I can't help", "{]", ""} {
		client := &fakeCompleter{content: content}
		p := NewCompletion(client, "gpt-4o-mini", time.Second)

		lines, err := p.Parse(context.Background(), "3 bottles cola")
		require.NoError(t, err, "content %q", content)
		require.Len(t, lines, 1)
		assert.Equal(t, "cola", lines[0].Name)
	}
}

func TestCompletionSanitizesModelOutput(t *testing.T) {
	client := &fakeCompleter{content: `[
		{"quantity": -4, "unit": "flask", "name": "  grape  mint ", "price": -1},
		{"quantity": 1, "unit": "case", "name": ""}]`}

	p := NewCompletion(client, "gpt-4o-mini", time.Second)
	lines, err := p.Parse(context.Background(), "whatever")
	require.NoError(t, err)
	require.Len(t, lines, 1, "empty-name line is dropped")

	line := lines[0]
	assert.True(t, line.Quantity.Equal(d("1")), "negative quantity coerced to 1")
	assert.Equal(t, DefaultUnit, line.Unit, "unknown unit coerced to generic")
	assert.Equal(t, "grape mint", line.Name)
	assert.Nil(t, line.PriceHint, "non-positive price discarded")
}
