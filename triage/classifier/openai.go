package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultOpenAIModel = "gpt-4"

const openAIPrompt = "Classify these messages as disinformation, including categories: conspiracy theory, " +
	"fabricated information, misleading information, imposter, uncertain, and other. Assign the message a " +
	"probability score for whether the message constitutes disinformation as a number between 0 and 1. " +
	"0 is not likely disinformation or no chance the message is disinformation, and 1 is highly likely or " +
	"almost certain that the message is disinformation. Your answer should be two lines, the first line " +
	"Score: and the second line Classification:"

// OpenAIClassifier asks a chat completion model for a score and a disinformation category.
type OpenAIClassifier struct {
	client openai.Client
	model  string
}

var _ Classifier = (*OpenAIClassifier)(nil)

func NewOpenAIClassifier(apiKey, model, baseURL string) *OpenAIClassifier {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClassifier{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAIPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}
	slog.DebugContext(ctx, "openai classification completed",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return ParseCompletion(resp.Choices[0].Message.Content), nil
}

// ParseCompletion reads the "Score:" and "Classification:" lines of a model answer. An
// unparseable score becomes UnknownScore; parsed scores are clamped into [0, 1].
func ParseCompletion(content string) *Result {
	res := Unknown()
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "Score:"); i >= 0 {
			raw := strings.TrimSpace(line[i+len("Score:"):])
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				res.Score = clampScore(v)
			} else {
				res.Score = UnknownScore
			}
		}
		if i := strings.Index(line, "Classification:"); i >= 0 {
			res.Label = strings.TrimSpace(line[i+len("Classification:"):])
		}
	}
	return res
}
