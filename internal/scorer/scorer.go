// Package scorer asks an LLM how cringe a post is.
package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrEmptyText = errors.New("scorer: text is empty")
	ErrUpstream  = errors.New("scorer: upstream error")
)

const promptTemplate = `You are a strict "Cringe Meter" for LinkedIn posts.
Return a JSON object with keys: score (0-100 integer), label (not_cringe|try_hard|meh|cringe|wtf), rationale, suggestion.
Scoring: reward authenticity, clarity; penalize fake hype, vague hustle, engagement-bait, cliché jargon, excessive emojis/hashtags, bragging w/o substance.
0-19 not_cringe; 20-39 try_hard; 40-59 meh; 60-79 cringe; 80-100 wtf.
Only output valid JSON.
Text to score between <<< >>>.
<<<
{{TEXT}}
>>>`

// Prompt renders the scoring prompt for text.
func Prompt(text string) string {
	return strings.Replace(promptTemplate, "{{TEXT}}", text, 1)
}

// Result is the score returned to clients.
type Result struct {
	Score      int    `json:"score"`
	Label      Label  `json:"label"`
	Rationale  string `json:"rationale,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Scorer scores one post.
type Scorer interface {
	Score(ctx context.Context, text string) (Result, error)
}

// ChatCompleter is the slice of the OpenAI client the scorer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI scores posts with a chat completion model.
type OpenAI struct {
	client ChatCompleter
	model  string
	logger zerolog.Logger
}

// NewOpenAI builds a scorer using the public OpenAI API.
func NewOpenAI(apiKey, model string, logger zerolog.Logger) *OpenAI {
	return New(openai.NewClient(apiKey), model, logger)
}

func New(client ChatCompleter, model string, logger zerolog.Logger) *OpenAI {
	return &OpenAI{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "scorer").Logger(),
	}
}

func (o *OpenAI) Score(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: Prompt(text)},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	content := "{}"
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		content = resp.Choices[0].Message.Content
	}

	res, err := ParseReply(content)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	o.logger.Debug().
		Str("model", o.model).
		Int("score", res.Score).
		Str("label", string(res.Label)).
		Dur("took", time.Since(start)).
		Msg("post scored")
	return res, nil
}

type reply struct {
	Score      any    `json:"score"`
	Label      string `json:"label"`
	Rationale  string `json:"rationale"`
	Suggestion string `json:"suggestion"`
}

// ParseReply coerces a model reply into a Result. Code fences around the
// JSON are tolerated. The score is rounded and clamped to 0..100; a missing
// or unknown label is derived from the score.
func ParseReply(content string) (Result, error) {
	var r reply
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		stripped := strings.ReplaceAll(content, "```json", "")
		stripped = strings.ReplaceAll(stripped, "```", "")
		if err := json.Unmarshal([]byte(strings.TrimSpace(stripped)), &r); err != nil {
			return Result{}, fmt.Errorf("invalid model reply: %w", err)
		}
	}

	score := clampScore(toFloat(r.Score))
	label := Label(r.Label)
	if !label.Valid() {
		label = BandFromScore(score)
	}

	return Result{
		Score:      score,
		Label:      label,
		Rationale:  r.Rationale,
		Suggestion: r.Suggestion,
	}, nil
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func clampScore(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(f))))
}
