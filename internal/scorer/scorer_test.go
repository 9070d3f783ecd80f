package scorer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	content string
	err     error
	got     openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content}},
		},
	}, nil
}

func TestOpenAI_Score(t *testing.T) {
	chat := &fakeChat{content: `{"score": 72.6, "label": "cringe", "rationale": "hustle talk", "suggestion": "be concrete"}`}
	s := New(chat, "gpt-4o-mini", zerolog.Nop())

	res, err := s.Score(context.Background(), "Agree? 🚀🚀🚀 #grind")
	require.NoError(t, err)

	assert.Equal(t, Result{Score: 73, Label: Cringe, Rationale: "hustle talk", Suggestion: "be concrete"}, res)
	assert.Equal(t, "gpt-4o-mini", chat.got.Model)
	require.Len(t, chat.got.Messages, 1)
	assert.Contains(t, chat.got.Messages[0].Content, "<<<\nAgree? 🚀🚀🚀 #grind\n>>>")
}

func TestOpenAI_Score_Errors(t *testing.T) {
	s := New(&fakeChat{err: errors.New("429 from upstream")}, "m", zerolog.Nop())
	_, err := s.Score(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = s.Score(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	s = New(&fakeChat{content: "I refuse"}, "m", zerolog.Nop())
	_, err = s.Score(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Result
	}{
		{
			name:    "fenced json",
			content: "```json\n{\"score\": 15, \"label\": \"not_cringe\"}\n```",
			want:    Result{Score: 15, Label: NotCringe},
		},
		{
			name:    "missing label derived from band",
			content: `{"score": 45}`,
			want:    Result{Score: 45, Label: Meh},
		},
		{
			name:    "unknown label derived from band",
			content: `{"score": 90, "label": "mega"}`,
			want:    Result{Score: 90, Label: WTF},
		},
		{
			name:    "score clamped high",
			content: `{"score": 250, "label": "wtf"}`,
			want:    Result{Score: 100, Label: WTF},
		},
		{
			name:    "score clamped low",
			content: `{"score": -4}`,
			want:    Result{Score: 0, Label: NotCringe},
		},
		{
			name:    "numeric string score",
			content: `{"score": "33"}`,
			want:    Result{Score: 33, Label: TryHard},
		},
		{
			name:    "empty object",
			content: `{}`,
			want:    Result{Score: 0, Label: NotCringe},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBandFromScore(t *testing.T) {
	assert.Equal(t, NotCringe, BandFromScore(0))
	assert.Equal(t, NotCringe, BandFromScore(19))
	assert.Equal(t, TryHard, BandFromScore(20))
	assert.Equal(t, Meh, BandFromScore(40))
	assert.Equal(t, Cringe, BandFromScore(79))
	assert.Equal(t, WTF, BandFromScore(80))
	assert.Equal(t, WTF, BandFromScore(100))
}
