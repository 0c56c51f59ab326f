package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/enrich"
)

const testModel = "gemini-2.5-flash"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), "test-key", testModel, baseURL, 5*time.Second, discardLogger())
	require.NoError(t, err)
	return c
}

// generateRequest is the subset of the request body the tests inspect.
type generateRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MIMEType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func writeCandidate(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestNewClient_NoKey(t *testing.T) {
	c, err := NewClient(context.Background(), "", testModel, "", time.Second, discardLogger())
	assert.Nil(t, c)
	require.ErrorIs(t, err, enrich.ErrNoAPIKey)
}

func TestClient_Generate_ImageRequest(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nfake")
	var got generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+testModel+":generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCandidate(t, w, `{"region": "Sicily", "hazardLevel": 80}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	text, err := c.Generate(context.Background(), enrich.Request{
		System:   "You are a seismologist.",
		Prompt:   "Assess this map.",
		Image:    image,
		MIMEType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"region": "Sicily", "hazardLevel": 80}`, text)

	require.Len(t, got.Contents, 1)
	turn := got.Contents[0]
	assert.Equal(t, "user", turn.Role)
	require.Len(t, turn.Parts, 2)
	require.NotNil(t, turn.Parts[0].InlineData)
	assert.Equal(t, "image/png", turn.Parts[0].InlineData.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), turn.Parts[0].InlineData.Data)
	assert.Equal(t, "Assess this map.", turn.Parts[1].Text)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "You are a seismologist.", got.SystemInstruction.Parts[0].Text)
}

func TestClient_Generate_History(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCandidate(t, w, "Strain peaks in March.")
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv.URL).Generate(context.Background(), enrich.Request{
		History: []enrich.Message{
			{Role: "user", Text: "What is the trend?"},
			{Role: "model", Text: "Rising."},
		},
		Prompt: "When does it peak?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Strain peaks in March.", text)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, []string{"user", "model", "user"},
		[]string{got.Contents[0].Role, got.Contents[1].Role, got.Contents[2].Role})
	require.Len(t, got.Contents[2].Parts, 1)
	assert.Equal(t, "When does it peak?", got.Contents[2].Parts[0].Text)
	assert.Nil(t, got.SystemInstruction)
}

func TestClient_Generate_QuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"code": 429, "message": "Resource has been exhausted (e.g. check quota).", "status": "RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Generate(context.Background(), enrich.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorQuotaExceeded, enrich.Classify(err))
}

func TestClient_Generate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"code": 500, "message": "Internal error", "status": "INTERNAL"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Generate(context.Background(), enrich.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorAPI, enrich.Classify(err))
}

func TestClient_WithEnricher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeCandidate(t, w, "Assessment follows.\n```json\n{\"region\": \"Bay Area\", \"hazardLevel\": 88, \"grid\": [90,90,90,80,80,80,70,70,70]}\n```")
	}))
	defer srv.Close()

	e := enrich.New(newTestClient(t, srv.URL), discardLogger())
	out := e.Enrich(context.Background(), enrich.Input{Hazard: domain.HazardSeismic, Image: []byte("GIF89a")})

	require.True(t, out.Verified(), "err: %v", errors.Unwrap(out.Err))
	assert.Equal(t, "Bay Area", out.Data.Region)
	assert.Len(t, out.Data.Grid, 9)
}
