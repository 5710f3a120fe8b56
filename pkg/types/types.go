// Package types defines the shared types used across all lidroute packages.
//
// These types are shared by the language identifier, the validation pipelines,
// the router and the transports that expose them. Each package defines its
// own domain types; cross-cutting data structures live here to avoid circular
// imports.
package types

import "fmt"

// Sentinel language codes that never appear in the language registry.
const (
	// CodeUnknown marks input that was too short (or not text) to classify.
	CodeUnknown = "unk"

	// CodeError marks input whose identification or processing failed.
	CodeError = "error"
)

// Display names used for sentinel and fallback results.
const (
	NameUnknown         = "Unknown"
	NameError           = "Error"
	NameOther           = "Other"
	NameModelNotLoaded  = "Model not loaded"
	NameLowConfidence   = "Low confidence"
	nameDetectionFailed = "Detection failed: "
)

// RouteKey names the downstream NLU service that should receive cleaned text.
type RouteKey string

const (
	RouteHindi    RouteKey = "nlu_hi"
	RouteKannada  RouteKey = "nlu_kn"
	RouteTelugu   RouteKey = "nlu_te"
	RouteIndic    RouteKey = "nlu_indic"
	RouteOther    RouteKey = "nlu_other"
	RouteFallback RouteKey = "nlu_fallback"
)

// RouteKeys lists every route key the system can emit, in a stable order.
var RouteKeys = []RouteKey{RouteHindi, RouteKannada, RouteTelugu, RouteIndic, RouteOther, RouteFallback}

// IsValid reports whether k is one of the fixed route keys.
func (k RouteKey) IsValid() bool {
	switch k {
	case RouteHindi, RouteKannada, RouteTelugu, RouteIndic, RouteOther, RouteFallback:
		return true
	}
	return false
}

// FailureKind classifies why a request did not produce a successful result.
type FailureKind string

const (
	// FailureInput is non-text, empty or too-short input.
	FailureInput FailureKind = "input"

	// FailureModelUnavailable means no classifier is configured.
	FailureModelUnavailable FailureKind = "model_unavailable"

	// FailureClassification means the classifier returned an error or panicked.
	FailureClassification FailureKind = "classification"

	// FailureOrchestration is any other unexpected failure in the router.
	FailureOrchestration FailureKind = "orchestration"
)

// Failure is the tagged failure attached to identification and pipeline
// results. It keeps the cause inspectable while the result itself stays a
// plain value that callers can treat uniformly.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Error implements the error interface so a Failure can be wrapped or logged.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Identification is the outcome of a language identification call.
//
// RouteKey is always one of [RouteKeys]. Results with Code [CodeUnknown] or
// [CodeError] always carry a Confidence of 0.
type Identification struct {
	// Code is the ISO 639-1 code predicted by the classifier, or a sentinel.
	Code string `json:"lang_code"`

	// Name is the display name, or a short diagnostic such as "Low confidence".
	Name string `json:"lang_name"`

	// Confidence is the classifier probability for Code in [0, 1].
	Confidence float64 `json:"confidence"`

	// RouteKey selects the downstream service.
	RouteKey RouteKey `json:"route_key"`

	// Text optionally carries the text that was classified.
	Text string `json:"text,omitempty"`

	// Failure is non-nil when the identification did not reach the classifier
	// or the classifier failed. Low-confidence results are not failures.
	Failure *Failure `json:"failure,omitempty"`
}

// Unknown returns the identification used for input that is too short or not
// text. The classifier is never consulted for such input.
func Unknown() Identification {
	return Identification{
		Code:     CodeUnknown,
		Name:     NameUnknown,
		RouteKey: RouteFallback,
		Failure:  &Failure{Kind: FailureInput, Message: "text too short"},
	}
}

// ModelNotLoaded returns the identification used when no classifier is
// configured.
func ModelNotLoaded() Identification {
	return Identification{
		Code:     CodeError,
		Name:     NameModelNotLoaded,
		RouteKey: RouteFallback,
		Failure:  &Failure{Kind: FailureModelUnavailable, Message: "no classifier configured"},
	}
}

// DetectionFailed returns the identification used when the classifier failed.
func DetectionFailed(msg string) Identification {
	return Identification{
		Code:     CodeError,
		Name:     nameDetectionFailed + msg,
		RouteKey: RouteFallback,
		Failure:  &Failure{Kind: FailureClassification, Message: msg},
	}
}

// Status values reported in [Result.Status].
const (
	StatusSuccess      = "success"
	statusErrorPrefix  = "error: "
	StatusInvalidInput = statusErrorPrefix + "invalid input"
)

// ErrorStatus formats msg as an error status string.
func ErrorStatus(msg string) string {
	return statusErrorPrefix + msg
}

// Result is the record produced for every routed input. A Result is created
// per request and never persisted.
type Result struct {
	Input       string   `json:"input"`
	CleanedText string   `json:"cleaned_text"`
	LangCode    string   `json:"lang_code"`
	LangName    string   `json:"lang_name"`
	Confidence  float64  `json:"confidence"`
	RouteKey    RouteKey `json:"route_key"`
	Status      string   `json:"status"`

	// Failure is set only when Status is an error status. Identification
	// failures (e.g. no classifier) do not fail the request: cleaned text is
	// still produced and Status stays "success".
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the result represents a successfully processed request.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// ErrorResult returns a Result carrying the safe defaults for a failed
// request: empty cleaned text, code "error", zero confidence and the fallback
// route.
func ErrorResult(input string, kind FailureKind, msg string) Result {
	return Result{
		Input:    input,
		LangCode: CodeError,
		LangName: NameError,
		RouteKey: RouteFallback,
		Status:   ErrorStatus(msg),
		Failure:  &Failure{Kind: kind, Message: msg},
	}
}

// Transcript is a speech-to-text result delivered by an external STT
// collaborator. Only final transcripts are routed.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string `json:"text"`

	// IsFinal indicates whether this is a final or an interim transcript.
	IsFinal bool `json:"is_final"`

	// Confidence is the STT confidence (0.0–1.0). May be zero if unknown.
	Confidence float64 `json:"confidence,omitempty"`

	// SpeakerID identifies the speaker when diarization is active.
	SpeakerID string `json:"speaker_id,omitempty"`
}
