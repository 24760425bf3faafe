package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/ai"
)

func collect(t *testing.T, c ai.Client, req ai.Request) (string, string, error) {
	t.Helper()
	var text, finish string
	for chunk, err := range c.Stream(context.Background(), req) {
		if err != nil {
			return text, finish, err
		}
		text += chunk.Text
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}
	return text, finish, nil
}

func TestStreamTranscribesThenChats(t *testing.T) {
	var chatBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "recording.mp3", hdr.Filename)
		data, _ := io.ReadAll(f)
		require.Equal(t, "audio-bytes", string(data))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"Agent: hello. Customer: my bill is wrong."}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&chatBody))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"summary: ", "billing dispute"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		io.WriteString(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient("sk-test", srv.URL+"/v1", "")
	text, finish, err := collect(t, c, ai.Request{
		Model:             "gpt-4o-mini",
		SystemInstruction: "You are an analyst.",
		Prompt:            "Fill the template.",
		Audio:             []byte("audio-bytes"),
		MIMEType:          "audio/mpeg",
	})
	require.NoError(t, err)
	require.Equal(t, "summary: billing dispute", text)
	require.Equal(t, ai.FinishReasonStop, finish)

	msgs := chatBody["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "You are an analyst.", msgs[0].(map[string]any)["content"])
	require.Contains(t, msgs[1].(map[string]any)["content"], "my bill is wrong")
	require.Contains(t, msgs[1].(map[string]any)["content"], "Fill the template.")
}

func TestStreamWithoutKey(t *testing.T) {
	_, _, err := collect(t, NewClient("", "", ""), ai.Request{})
	require.ErrorIs(t, err, ai.ErrMissingCredential)
}

func TestStreamTranscriptionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, _, err := collect(t, NewClient("sk-bad", srv.URL+"/v1", ""), ai.Request{Audio: []byte("x"), MIMEType: "audio/wav"})
	require.ErrorContains(t, err, "transcribe")
}

func TestWithTranscript(t *testing.T) {
	got := withTranscript("Analyze the call.\n", "  Agent: hi  ")
	require.Equal(t, "Analyze the call.\n\nCall transcript:\nAgent: hi", got)
}
