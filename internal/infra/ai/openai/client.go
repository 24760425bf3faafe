package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/ai"
)

const (
	defaultChatModel = "gpt-4o-mini"
	maxTokens        = 4096
)

// Client transcribes the recording first, then streams a chat completion over the transcript.
type Client struct {
	*openai.Client
	TranscriptionModel string
	hasKey             bool
}

func NewClient(apiKey, baseURL, transcriptionModel string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if transcriptionModel == "" {
		transcriptionModel = openai.Whisper1
	}
	return &Client{
		Client:             openai.NewClientWithConfig(cfg),
		TranscriptionModel: transcriptionModel,
		hasKey:             apiKey != "",
	}
}

func (c *Client) Stream(ctx context.Context, req ai.Request) iter.Seq2[ai.Chunk, error] {
	return func(yield func(ai.Chunk, error) bool) {
		if !c.hasKey {
			yield(ai.Chunk{}, ai.ErrMissingCredential)
			return
		}
		transcript, err := c.transcribe(ctx, req)
		if err != nil {
			yield(ai.Chunk{}, err)
			return
		}

		model := req.Model
		if model == "" {
			model = defaultChatModel
		}
		chat := openai.ChatCompletionRequest{
			Model:     model,
			Stream:    true,
			MaxTokens: maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: req.SystemInstruction},
				{Role: openai.ChatMessageRoleUser, Content: withTranscript(req.Prompt, transcript)},
			},
		}
		// Reasoning models reject max_tokens.
		if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
			chat.MaxTokens = 0
			chat.MaxCompletionTokens = maxTokens
		}

		stream, err := c.CreateChatCompletionStream(ctx, chat)
		if err != nil {
			yield(ai.Chunk{}, fmt.Errorf("failed to create chat completion stream: %w", err))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(ai.Chunk{}, fmt.Errorf("chat completion stream: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			chunk := ai.Chunk{
				Text:         choice.Delta.Content,
				FinishReason: strings.ToUpper(string(choice.FinishReason)),
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (c *Client) transcribe(ctx context.Context, req ai.Request) (string, error) {
	resp, err := c.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.TranscriptionModel,
		FilePath: "recording" + extensionFor(req.MIMEType),
		Reader:   bytes.NewReader(req.Audio),
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return resp.Text, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav":
		return ".wav"
	case "audio/m4a":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	}
	return ""
}

// withTranscript appends the transcript to the analysis prompt for text-only models.
func withTranscript(prompt, transcript string) string {
	return fmt.Sprintf("%s\n\nCall transcript:\n%s", strings.TrimSpace(prompt), strings.TrimSpace(transcript))
}
