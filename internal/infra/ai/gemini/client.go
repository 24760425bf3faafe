package gemini

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/ai"
)

const defaultModel = "gemini-2.5-flash"

// Options configure the Gemini API client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client implements ai.Client on the Gemini API.
type Client struct {
	opts Options
}

func NewClient(opts Options) *Client {
	return &Client{opts: opts}
}

func (c *Client) Stream(ctx context.Context, req ai.Request) iter.Seq2[ai.Chunk, error] {
	return func(yield func(ai.Chunk, error) bool) {
		if c.opts.APIKey == "" {
			yield(ai.Chunk{}, ai.ErrMissingCredential)
			return
		}
		cli, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      c.opts.APIKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  c.opts.HTTPClient,
			HTTPOptions: genai.HTTPOptions{BaseURL: c.opts.BaseURL},
		})
		if err != nil {
			yield(ai.Chunk{}, fmt.Errorf("gemini client: %w", err))
			return
		}

		model := req.Model
		if model == "" {
			model = defaultModel
		}
		// genai base64-encodes InlineData on the wire.
		contents := []*genai.Content{
			genai.NewContentFromParts([]*genai.Part{
				genai.NewPartFromText(req.Prompt),
				genai.NewPartFromBytes(req.Audio, req.MIMEType),
			}, genai.RoleUser),
		}
		var cfg *genai.GenerateContentConfig
		if strings.TrimSpace(req.SystemInstruction) != "" {
			cfg = &genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
			}
		}

		for resp, err := range cli.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				yield(ai.Chunk{}, fmt.Errorf("gemini stream: %w", err))
				return
			}
			if !yield(convertChunk(resp), nil) {
				return
			}
		}
	}
}

func convertChunk(resp *genai.GenerateContentResponse) ai.Chunk {
	if resp == nil || len(resp.Candidates) == 0 {
		return ai.Chunk{}
	}
	cand := resp.Candidates[0]
	var b strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	return ai.Chunk{
		Text:         b.String(),
		FinishReason: strings.ToUpper(string(cand.FinishReason)),
	}
}
