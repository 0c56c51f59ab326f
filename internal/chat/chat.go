// Package chat answers questions about a completed analysis by handing the
// report to the generative model as context.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/enrich"
)

// ErrEmptyMessage is returned for a request without a user message.
var ErrEmptyMessage = errors.New("chat message is empty")

// MissingKeyReply is returned when no model key is configured.
const MissingKeyReply = "**AI chat is unavailable.** No Gemini API key is configured. " +
	"Set `GEMINI_API_KEY` and restart the service."

type persona struct {
	name      string
	expertise string
	greeting  string
	rules     []string
}

var personas = map[domain.HazardType]persona{
	domain.HazardSeismic: {
		name:      "Seismic Companion",
		expertise: "seismology and structural engineering",
		greeting:  "Hello! I'm your Seismic Companion. Ask me about the strain trend, the magnitude frequencies, or what drives the risk in %s.",
		rules: []string{
			"If the user asks about trends, refer to the temporal trend data.",
			"If the user asks about magnitudes, refer to the magnitude distribution (probabilities are incident indices).",
		},
	},
	domain.HazardWildfire: {
		name:      "Wildfire Companion",
		expertise: "fire behaviour and land management",
		greeting:  "Hello! I'm your Wildfire Companion. Ask me about fuel moisture, ignition risk, or the fire classes expected in %s.",
		rules: []string{
			"If the user asks about seasonality, refer to the fuel moisture and ignition risk trend.",
			"If the user asks about fire size, refer to the fire class distribution.",
		},
	},
	domain.HazardStorm: {
		name:      "Storm Companion",
		expertise: "meteorology and flood engineering",
		greeting:  "Hello! I'm your Storm Companion. Ask me about precipitation, wind, or the storm categories expected in %s.",
		rules: []string{
			"If the user asks about seasonality, refer to the precipitation and wind trend.",
			"If the user asks about storm strength, refer to the category distribution.",
		},
	},
}

func personaFor(h domain.HazardType) persona {
	if p, ok := personas[h]; ok {
		return p
	}
	return personas[domain.HazardSeismic]
}

// Request is one chat turn about an analysis.
type Request struct {
	Message string            `json:"message"`
	History []enrich.Message  `json:"history"`
	Hazard  domain.HazardType `json:"hazard"`
	Region  string            `json:"region"`
	Report  domain.ReportData `json:"reportData"`
}

// Reply is the assistant's answer. ErrorCode is set when the model call
// failed and Text carries an explanation instead of an answer.
type Reply struct {
	Text      string           `json:"reply"`
	ErrorCode domain.ErrorCode `json:"errorCode,omitempty"`
}

// Responder answers chat requests. A nil generator answers every request
// with MissingKeyReply.
type Responder struct {
	gen    enrich.Generator
	logger *slog.Logger
}

// NewResponder creates a Responder.
func NewResponder(gen enrich.Generator, logger *slog.Logger) *Responder {
	return &Responder{gen: gen, logger: logger}
}

// Greeting is the assistant's opening message for hazard h.
func Greeting(h domain.HazardType, region string) string {
	if strings.TrimSpace(region) == "" {
		region = "this area"
	}
	return fmt.Sprintf(personaFor(h).greeting, region)
}

// BuildContext renders the system instruction: the hazard persona followed
// by the report data and answering rules.
func BuildContext(h domain.HazardType, region string, report domain.ReportData) string {
	p := personaFor(h)
	if strings.TrimSpace(region) == "" {
		region = "Unknown"
	}
	justification := report.Justification
	if justification == "" {
		justification = "None provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the %q, an AI expert in %s.\n", p.name, p.expertise)
	fmt.Fprintf(&b, "Your goal is to answer questions about a specific %s risk report provided in the context.\n\n", h)
	b.WriteString("CONTEXT DATA:\n")
	fmt.Fprintf(&b, "Region: %s\n", region)
	fmt.Fprintf(&b, "Justification: %s\n", justification)
	if report.Unit1 != "" || report.Unit2 != "" {
		fmt.Fprintf(&b, "Trend units: value1 = %s, value2 = %s\n", report.Unit1, report.Unit2)
	}
	fmt.Fprintf(&b, "Temporal Trend: %s\n", mustJSON(report.TemporalTrend))
	fmt.Fprintf(&b, "Magnitude Frequency: %s\n", mustJSON(report.MagnitudeDist))
	fmt.Fprintf(&b, "Factors: %s\n\n", mustJSON(report.FactorComparison))
	b.WriteString("RULES:\n")

	rules := make([]string, 0, len(p.rules)+3)
	rules = append(rules, "Always refer to the data in the context when answering.")
	rules = append(rules, p.rules...)
	rules = append(rules,
		"Keep answers professional, concise, and focused on safety and science.",
		"Use markdown for better readability.",
	)
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}

// Respond sends the history and message with the report context. Model
// failures are reported in the reply, never as an error.
func (r *Responder) Respond(ctx context.Context, req Request) (Reply, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return Reply{}, ErrEmptyMessage
	}
	if r.gen == nil {
		return Reply{Text: MissingKeyReply}, nil
	}

	text, err := r.gen.Generate(ctx, enrich.Request{
		System:  BuildContext(req.Hazard, req.Region, req.Report),
		History: trimHistory(req.History),
		Prompt:  msg,
	})
	if err != nil {
		if errors.Is(err, enrich.ErrNoAPIKey) {
			return Reply{Text: MissingKeyReply}, nil
		}
		code := enrich.Classify(err)
		r.logger.Warn("chat generation failed", "error", err, "error_code", code, "hazard", req.Hazard)
		return Reply{
			Text: fmt.Sprintf("**%s error:** %s\n\nThis could be a quota limit (429) or a model-specific issue. "+
				"Please try again in about 20 seconds.", personaFor(req.Hazard).name, err.Error()),
			ErrorCode: code,
		}, nil
	}

	return Reply{Text: text}, nil
}

// trimHistory drops a leading assistant turn (the greeting) since a
// conversation must open with the user, and normalizes roles.
func trimHistory(history []enrich.Message) []enrich.Message {
	out := make([]enrich.Message, 0, len(history))
	for i, m := range history {
		role := "user"
		if m.Role == "assistant" || m.Role == "model" {
			role = "model"
		}
		if i == 0 && role == "model" {
			continue
		}
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		out = append(out, enrich.Message{Role: role, Text: m.Text})
	}
	return out
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
