// Package enrich obtains an optional AI opinion on a hazard map image and
// turns the model's loosely structured reply into typed values. Failures are
// classified into domain error codes and never escape as errors.
package enrich

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// ErrNoAPIKey is reported when no model credentials are configured. It is
// treated as "no data", not as a failure.
var ErrNoAPIKey = errors.New("generative model API key not configured")

// Message is one turn of a conversation sent to the model.
type Message struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"content"`
}

// Request is a single generation call.
type Request struct {
	System   string
	History  []Message
	Prompt   string
	Image    []byte
	MIMEType string
}

// Generator sends a request to a generative model and returns its text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Input describes the image to assess.
type Input struct {
	Image    []byte
	MIMEType string
	Hazard   domain.HazardType
	Location string
}

// Outcome is the classified result of one enrichment attempt. Data is nil
// whenever the model gave no usable answer; ErrorCode is set only for
// failures the caller should surface.
type Outcome struct {
	Data      *Response
	ErrorCode domain.ErrorCode
	Err       error
}

// Verified reports whether the model returned a parsed object.
func (o Outcome) Verified() bool { return o.Data != nil }

// Status is a short label for logs and metrics.
func (o Outcome) Status() string {
	switch {
	case o.Data != nil:
		return "verified"
	case o.ErrorCode == domain.ErrorQuotaExceeded:
		return "quota_exceeded"
	case o.ErrorCode != "":
		return "api_error"
	default:
		return "no_data"
	}
}

// Enricher asks the generator for an assessment.
type Enricher struct {
	gen    Generator
	logger *slog.Logger
}

// New creates an Enricher. A nil generator disables enrichment.
func New(gen Generator, logger *slog.Logger) *Enricher {
	return &Enricher{gen: gen, logger: logger}
}

// Enabled reports whether a generator is configured.
func (e *Enricher) Enabled() bool {
	return e != nil && e.gen != nil
}

// Enrich sends one request with no retry.
func (e *Enricher) Enrich(ctx context.Context, in Input) Outcome {
	if !e.Enabled() {
		return Outcome{}
	}

	mime := in.MIMEType
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(in.Image)
	}

	text, err := e.gen.Generate(ctx, Request{
		System:   in.Hazard.Labels().Persona,
		Prompt:   BuildPrompt(in.Hazard, in.Location),
		Image:    in.Image,
		MIMEType: mime,
	})
	if err != nil {
		if errors.Is(err, ErrNoAPIKey) {
			return Outcome{}
		}
		code := Classify(err)
		e.logger.Warn("ai enrichment failed, using local analysis",
			"error", err,
			"error_code", code,
			"hazard", in.Hazard,
		)
		return Outcome{ErrorCode: code, Err: err}
	}

	raw, ok := ExtractObject(text)
	if !ok {
		e.logger.Warn("ai response contained no json object", "hazard", in.Hazard, "response_len", len(text))
		return Outcome{}
	}

	return Outcome{Data: ParseResponse(raw, in.Hazard)}
}

// Classify maps a generation error to an error code: anything mentioning
// "429" or "quota" is QUOTA_EXCEEDED, everything else API_ERROR.
func Classify(err error) domain.ErrorCode {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "quota") {
		return domain.ErrorQuotaExceeded
	}
	return domain.ErrorAPI
}
