package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
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

func TestStreamSendsInlineAudio(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"summary: "}]}}]}`+"\n\n")
		io.WriteString(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"thinking","thought":true},{"text":"late payment"}]},"finishReason":"STOP"}]}`+"\n\n")
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	text, finish, err := collect(t, c, ai.Request{
		Model:             "gemini-2.5-flash",
		SystemInstruction: "You are an analyst.",
		Prompt:            "Analyze.",
		Audio:             []byte("RIFFdata"),
		MIMEType:          "audio/wav",
	})
	require.NoError(t, err)
	require.Equal(t, "summary: late payment", text)
	require.Equal(t, ai.FinishReasonStop, finish)
	require.True(t, strings.HasSuffix(path, "models/gemini-2.5-flash:streamGenerateContent"), path)

	contents := body["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Equal(t, "Analyze.", parts[0].(map[string]any)["text"])
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	require.Equal(t, "audio/wav", inline["mimeType"])
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("RIFFdata")), inline["data"])

	sys := body["systemInstruction"].(map[string]any)["parts"].([]any)
	require.Equal(t, "You are an analyst.", sys[0].(map[string]any)["text"])
}

func TestStreamReportsEarlyStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"candidates":[{"finishReason":"SAFETY"}]}`+"\n\n")
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "k", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	text, finish, err := collect(t, c, ai.Request{Audio: []byte("x"), MIMEType: "audio/mpeg"})
	require.NoError(t, err)
	require.Empty(t, text)
	require.Equal(t, "SAFETY", finish)
}

func TestStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "k", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	_, _, err := collect(t, c, ai.Request{Audio: []byte("x"), MIMEType: "audio/mpeg"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key not valid")
}

func TestStreamWithoutKey(t *testing.T) {
	_, _, err := collect(t, NewClient(Options{}), ai.Request{})
	require.ErrorIs(t, err, ai.ErrMissingCredential)
}
