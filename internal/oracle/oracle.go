// Package oracle asks a vision model who won a match from a screenshot.
// It is best effort: every failure yields a nil verdict.
package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"arena-sync/internal/config"
	"arena-sync/internal/model"
)

var (
	scorePattern = regexp.MustCompile(`^\d+-\d+$`)
	mimePattern  = regexp.MustCompile(`^data:([\w.+-]+/[\w.+-]+)[;,]`)
	fencePattern = regexp.MustCompile("```(?:json)?")
)

// Request describes the match shown in the screenshot.
type Request struct {
	MatchID     string
	Player1     model.MatchPlayer
	Player2     model.MatchPlayer
	ImageBase64 string
}

// Verdict is the model's reading of the screenshot.
type Verdict struct {
	WinnerID string `json:"winnerId"`
	Score    string `json:"score"`
}

// generator is the part of the genai client the verifier calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Verifier reads match results through the Gemini API.
type Verifier struct {
	gen     generator
	model   string
	timeout time.Duration
}

// NewVerifier creates a Verifier. An empty API key returns a disabled verifier.
func NewVerifier(ctx context.Context, cfg config.OracleConfig) (*Verifier, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	v := &Verifier{model: cfg.Model, timeout: timeout}
	if cfg.APIKey == "" {
		return v, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	v.gen = client.Models
	return v, nil
}

// Enabled reports whether a credential is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && v.gen != nil
}

// Verify returns the winner and score read from the screenshot, or nil when the
// model is unavailable or its answer cannot be trusted.
func (v *Verifier) Verify(ctx context.Context, req Request) *Verdict {
	if !v.Enabled() {
		log.Debug().Str("match_id", req.MatchID).Msg("Result verification skipped, no API key")
		return nil
	}

	text, err := v.generate(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("match_id", req.MatchID).Msg("Result verification failed")
		return nil
	}

	verdict, err := parseVerdict(text, req.Player1, req.Player2)
	if err != nil {
		log.Warn().Err(err).Str("match_id", req.MatchID).Msg("Result verification returned an unusable answer")
		return nil
	}
	return verdict
}

func (v *Verifier) generate(ctx context.Context, req Request) (string, error) {
	mimeType, data := splitDataURL(req.ImageBase64)
	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("screenshot is not base64: %w", err)
	}
	prompt := fmt.Sprintf(
		`Analyze this game screenshot. Player 1 is "%s", Player 2 is "%s". Return JSON: { winnerId, score }`,
		req.Player1.Name, req.Player2.Name,
	)

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}, genai.RoleUser)}

	resp, err := v.gen.GenerateContent(ctx, v.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("model response has no text")
	}
	return text, nil
}

// splitDataURL separates the MIME type from a data URL; plain base64 is assumed to be PNG.
func splitDataURL(s string) (mimeType, data string) {
	mimeType = "image/png"
	if m := mimePattern.FindStringSubmatch(s); m != nil {
		mimeType = m[1]
	}
	if _, after, ok := strings.Cut(s, ","); ok {
		return mimeType, after
	}
	return mimeType, s
}

// parseVerdict decodes the model's reply. The winner may be given by id or by name
// and must be one of the two players.
func parseVerdict(text string, p1, p2 model.MatchPlayer) (*Verdict, error) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))

	var raw struct {
		WinnerID any `json:"winnerId"`
		Score    any `json:"score"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("reply is not JSON: %w", err)
	}

	winner := strings.TrimSpace(fmt.Sprint(raw.WinnerID))
	score := strings.ReplaceAll(fmt.Sprint(raw.Score), " ", "")

	var winnerID string
	switch {
	case winner == p1.ID || strings.EqualFold(winner, p1.Name):
		winnerID = p1.ID
	case winner == p2.ID || strings.EqualFold(winner, p2.Name):
		winnerID = p2.ID
	default:
		return nil, fmt.Errorf("winner %q is not a player of this match", winner)
	}
	if winnerID == "" {
		return nil, fmt.Errorf("winner slot is unassigned")
	}
	if !scorePattern.MatchString(score) {
		return nil, fmt.Errorf("score %q is not in <int>-<int> form", score)
	}
	return &Verdict{WinnerID: winnerID, Score: score}, nil
}
