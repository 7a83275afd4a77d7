package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide/knowledge"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide/prompts"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	logx "github.com/VirtuLab-core-poc-v1/server/pkg/logger"
)

// emptyReply stands in for a successful call that produced no text.
const emptyReply = "Indeed!"

// NewRoutePreHandler seeds graph state for a new question.
func NewRoutePreHandler() func(context.Context, model.GuideRequest, *model.GuideState) (model.GuideRequest, error) {
	return func(ctx context.Context, in model.GuideRequest, s *model.GuideState) (model.GuideRequest, error) {
		s.SessionID = in.SessionID
		s.Attempts = nil
		return in, nil
	}
}

// NewRouteNode passes the request through; routing happens on its branch.
func NewRouteNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.GuideRequest) (model.GuideRequest, error) {
		if strings.TrimSpace(in.Question) == "" {
			return in, errx.New(errx.InvalidCommand, nil, "question is empty")
		}
		return in, nil
	})
}

// NewRouteCondition picks the offline path for offline-only kinds, the
// configuration error when no remote backend is configured, and the remote
// path otherwise.
func NewRouteCondition(offline map[model.Kind]bool, remoteReady bool) func(context.Context, model.GuideRequest) (string, error) {
	return func(ctx context.Context, in model.GuideRequest) (string, error) {
		kind := in.Experiment.Kind
		switch {
		case offline[kind]:
			logx.Debug().Str("session_id", in.SessionID).Str("kind", string(kind)).Msg("Routing to offline guide")
			return NodeOffline, nil
		case !remoteReady:
			logx.Warn().Str("session_id", in.SessionID).Str("kind", string(kind)).Msg("Remote guide not configured")
			return NodeConfigError, nil
		}
		logx.Debug().Str("session_id", in.SessionID).Str("kind", string(kind)).Msg("Routing to remote guide")
		return NodeRemote, nil
	}
}

// NewOfflineNode answers from the knowledge base without touching the network.
func NewOfflineNode(kb *knowledge.Base) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.GuideRequest) (model.GuideReply, error) {
		return model.GuideReply{
			Text:    kb.Answer(in.Experiment.Kind, in.Question),
			Outcome: model.OutcomeOffline,
		}, nil
	})
}

// NewConfigErrorNode reports that remote guidance needs a credential.
func NewConfigErrorNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.GuideRequest) (model.GuideReply, error) {
		return model.GuideReply{
			Text:    Remediation(errx.ConfigurationMismatch, nil),
			Outcome: model.OutcomeError,
			ErrKind: errx.ConfigurationMismatch,
		}, nil
	})
}

// NewRemoteNode renders the prompt and runs the model cascade. Failures are
// carried in the outcome so the branch after this node can route them.
func NewRemoteNode(gen Generator, cfg model.GuideModelConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.GuideRequest) (model.RemoteOutcome, error) {
		out := model.RemoteOutcome{Request: in}

		prompt, err := prompts.RenderGuidePrompt(ctx, in)
		if err != nil {
			out.Err = errx.New(errx.RemoteFailure, err, "render guide prompt")
			return out, nil
		}

		res := RunCascade(ctx, gen, cfg, prompt)
		out.Text, out.Model, out.Usage, out.Err = res.Text, res.Model, res.Usage, res.Err

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.GuideState) error {
			s.Attempts = append(s.Attempts, res.Attempts...)
			return nil
		})
		if err != nil {
			return out, fmt.Errorf("failed to access state: %w", err)
		}
		return out, nil
	})
}

// NewRemoteCondition routes a finished cascade to its terminal node.
func NewRemoteCondition() func(context.Context, model.RemoteOutcome) (string, error) {
	return func(ctx context.Context, in model.RemoteOutcome) (string, error) {
		if in.Err == nil {
			return NodeRemoteReply, nil
		}
		kind := errx.KindOf(in.Err)
		ev := logx.Warn().Err(in.Err).Str("session_id", in.Request.SessionID).Str("kind", string(kind))
		if fallsBackOffline(kind) {
			ev.Msg("Remote guide unavailable - falling back to offline answer")
			return NodeOfflineFallback, nil
		}
		ev.Msg("Remote guide failed - reporting error")
		return NodeErrorReport, nil
	}
}

// NewRemoteReplyNode turns a successful cascade into the reply.
func NewRemoteReplyNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.RemoteOutcome) (model.GuideReply, error) {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			text = emptyReply
		}
		reply := model.GuideReply{
			Text:    text,
			Outcome: model.OutcomeOnline,
			Model:   in.Model,
		}
		if in.Usage != nil {
			inC, outC, totalC := model.ComputeCost(in.Usage, model.ResolvePricing(in.Model))
			reply.CostUSD = totalC
			logx.Debug().
				Str("session_id", in.Request.SessionID).
				Str("node", NodeRemoteReply).
				Str("model", in.Model).
				Int("prompt_tokens", in.Usage.PromptTokens).
				Int("completion_tokens", in.Usage.CompletionTokens).
				Int("total_tokens", in.Usage.TotalTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")
		}
		return reply, nil
	})
}

// NewOfflineFallbackNode substitutes the knowledge base answer for a
// transient remote failure.
func NewOfflineFallbackNode(kb *knowledge.Base) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.RemoteOutcome) (model.GuideReply, error) {
		return model.GuideReply{
			Text:    kb.Answer(in.Request.Experiment.Kind, in.Request.Question),
			Outcome: model.OutcomeFallback,
			ErrKind: errx.KindOf(in.Err),
		}, nil
	})
}

// NewErrorReportNode renders a visible error reply naming the failure and a
// remediation hint.
func NewErrorReportNode(cfg model.GuideModelConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.RemoteOutcome) (model.GuideReply, error) {
		kind := errx.KindOf(in.Err)
		if kind == "" {
			kind = errx.RemoteFailure
		}
		return model.GuideReply{
			Text:    FailureReport(in.Err, cfg.Models),
			Outcome: model.OutcomeError,
			ErrKind: kind,
		}, nil
	})
}

// NewAttemptsPostHandler copies the recorded attempts onto the reply.
func NewAttemptsPostHandler() func(context.Context, model.GuideReply, *model.GuideState) (model.GuideReply, error) {
	return func(ctx context.Context, out model.GuideReply, s *model.GuideState) (model.GuideReply, error) {
		if len(s.Attempts) > 0 {
			out.Attempts = append([]model.Attempt(nil), s.Attempts...)
		}
		return out, nil
	}
}
