package gemini

import (
	"fmt"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DTOs
// ══════════════════════════════════════════════════════════════════════════════

// GenerateContentRequest is the body of models/{model}:generateContent.
type GenerateContentRequest struct {
	Contents []ContentDTO `json:"contents"`

	GenerationConfig *GenerationConfigDTO `json:"generationConfig,omitempty"`
}

// ContentDTO is one conversation turn.
type ContentDTO struct {
	Role  string    `json:"role,omitempty"`
	Parts []PartDTO `json:"parts"`
}

// PartDTO is a text fragment of a turn.
type PartDTO struct {
	Text string `json:"text,omitempty"`
}

// GenerationConfigDTO tunes sampling.
type GenerationConfigDTO struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// GenerateContentResponse is the subset of the API answer we read.
type GenerateContentResponse struct {
	Candidates []CandidateDTO `json:"candidates"`

	PromptFeedback *PromptFeedbackDTO `json:"promptFeedback,omitempty"`
}

// CandidateDTO is one generated answer.
type CandidateDTO struct {
	Content      ContentDTO `json:"content"`
	FinishReason string     `json:"finishReason,omitempty"`
}

// PromptFeedbackDTO is set when the prompt itself was blocked.
type PromptFeedbackDTO struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorResponse wraps the error object of a non-2xx answer.
type APIErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError is the error returned by the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini api error %d %s: %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api error %d: %s", e.Code, e.Message)
}

// Temporary reports whether a later attempt may succeed.
func (e *APIError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}
