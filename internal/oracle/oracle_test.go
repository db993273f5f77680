package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"arena-sync/internal/config"
	"arena-sync/internal/model"
)

type fakeGenerator struct {
	reply    *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	calls    int
}

func (g *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	g.calls++
	g.model = model
	g.contents = contents
	return g.reply, g.err
}

func textReply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText(text, genai.RoleModel),
	}}}
}

func newTestVerifier(gen *fakeGenerator) *Verifier {
	return &Verifier{gen: gen, model: "gemini-1.5-flash", timeout: time.Second}
}

var testRequest = Request{
	MatchID:     "x1",
	Player1:     model.MatchPlayer{ID: "u1", Name: "Nova"},
	Player2:     model.MatchPlayer{ID: "u2", Name: "Rex"},
	ImageBase64: "data:image/jpeg;base64,QUJD",
}

func TestVerify_ParsesFencedReply(t *testing.T) {
	gen := &fakeGenerator{reply: textReply("```json\n{\"winnerId\": \"u2\", \"score\": \"3-1\"}\n```")}

	verdict := newTestVerifier(gen).Verify(context.Background(), testRequest)

	require.NotNil(t, verdict)
	assert.Equal(t, &Verdict{WinnerID: "u2", Score: "3-1"}, verdict)
	assert.Equal(t, "gemini-1.5-flash", gen.model)
	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, `Player 1 is "Nova", Player 2 is "Rex"`)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("ABC"), parts[1].InlineData.Data)
}

func TestVerify_WinnerByName(t *testing.T) {
	gen := &fakeGenerator{reply: textReply(`{"winnerId":"nova","score":"2 - 0"}`)}

	verdict := newTestVerifier(gen).Verify(context.Background(), testRequest)

	require.NotNil(t, verdict)
	assert.Equal(t, "u1", verdict.WinnerID)
	assert.Equal(t, "2-0", verdict.Score)
}

func TestVerify_ReturnsNil(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
		req  Request
	}{
		{"non-JSON reply", &fakeGenerator{reply: textReply("Player one clearly won.")}, testRequest},
		{"unknown winner", &fakeGenerator{reply: textReply(`{"winnerId":"u9","score":"1-0"}`)}, testRequest},
		{"bad score", &fakeGenerator{reply: textReply(`{"winnerId":"u1","score":"won"}`)}, testRequest},
		{"model error", &fakeGenerator{err: errors.New("rpc error: deadline exceeded")}, testRequest},
		{"no candidates", &fakeGenerator{reply: &genai.GenerateContentResponse{}}, testRequest},
		{"image not base64", &fakeGenerator{reply: textReply(`{"winnerId":"u1","score":"1-0"}`)}, Request{
			MatchID: "x1", Player1: testRequest.Player1, Player2: testRequest.Player2, ImageBase64: "data:image/png;base64,%%%",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, newTestVerifier(tt.gen).Verify(context.Background(), tt.req))
		})
	}
}

func TestVerify_DisabledWithoutKey(t *testing.T) {
	v, err := NewVerifier(context.Background(), config.OracleConfig{Model: "gemini-1.5-flash"})
	require.NoError(t, err)

	assert.False(t, v.Enabled())
	assert.Nil(t, v.Verify(context.Background(), testRequest))
}

func TestNewVerifier_KeyStaysOutOfURLAndLogs(t *testing.T) {
	const key = "SECRET-KEY-123"

	var (
		gotPath  string
		gotQuery string
		gotKey   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-goog-api-key")
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "Image could not be processed", "status": "INVALID_ARGUMENT"},
		})
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	v, err := NewVerifier(context.Background(), config.OracleConfig{
		APIKey:   key,
		Model:    "gemini-1.5-flash",
		Endpoint: srv.URL,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	require.True(t, v.Enabled())

	assert.Nil(t, v.Verify(context.Background(), testRequest))

	assert.Contains(t, gotPath, "gemini-1.5-flash:generateContent")
	assert.NotContains(t, gotQuery, key)
	assert.Equal(t, key, gotKey)
	assert.Contains(t, buf.String(), "Result verification failed")
	assert.NotContains(t, buf.String(), key)
}

func TestSplitDataURL(t *testing.T) {
	mime, data := splitDataURL("data:image/webp;base64,AAAA")
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, "AAAA", data)

	mime, data = splitDataURL("AAAA")
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, "AAAA", data)
}
