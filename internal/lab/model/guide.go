package model

import (
	"github.com/cloudwego/eino/schema"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
)

// Outcome says which path produced a guide reply.
type Outcome string

const (
	OutcomeOnline   Outcome = "online"   // remote model answered
	OutcomeOffline  Outcome = "offline"  // offline-only experiment
	OutcomeFallback Outcome = "fallback" // remote quota/timeout, offline answer substituted
	OutcomeError    Outcome = "error"    // visible error reply
)

// GuideRequest is everything needed to resolve one question, captured when
// the question is submitted so resolution never touches live session state.
type GuideRequest struct {
	SessionID  string
	Experiment Experiment
	Question   string
	Reading    Reading
	// History is the recent window preceding the question.
	History []*schema.Message
}

// GuideReply is the single assistant reply produced for a question.
type GuideReply struct {
	Text     string
	Outcome  Outcome
	Model    string    // model that answered, when online
	Attempts []Attempt // remote calls made, in order
	ErrKind  errx.Kind // terminal classification for fallback/error replies
	CostUSD  float64
}

// Attempt records one candidate call of the cascade.
type Attempt struct {
	Model string
	Err   error
	Kind  errx.Kind
}

// RemoteOutcome is what the cascade hands to the terminal routing step.
type RemoteOutcome struct {
	Request GuideRequest
	Text    string
	Model   string
	Usage   *schema.TokenUsage
	Err     error
}

// GuideState is per-invocation graph state for the dialogue graph.
// All reads/writes happen inside eino state handlers or compose.ProcessState,
// which serialises access; do not touch it elsewhere.
type GuideState struct {
	SessionID string
	Attempts  []Attempt
}
