package ai

import (
	"context"
	"iter"
)

// Request is one multimodal inference call: a text prompt plus a single audio blob.
type Request struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Audio             []byte
	MIMEType          string
}

// Chunk is one fragment of a streamed model response.
// FinishReason is empty until the provider reports why generation stopped.
type Chunk struct {
	Text         string
	FinishReason string
}

// Client streams a model response for one request.
// The sequence ends after the last chunk or the first error.
type Client interface {
	Stream(ctx context.Context, req Request) iter.Seq2[Chunk, error]
}
