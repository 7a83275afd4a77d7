package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	logx "github.com/VirtuLab-core-poc-v1/server/pkg/logger"
)

// CascadeResult is the outcome of trying the candidate models in order.
type CascadeResult struct {
	Text     string
	Model    string
	Usage    *schema.TokenUsage
	Attempts []model.Attempt
	Err      error // *errx.AppError carrying the terminal kind
}

// RunCascade tries each candidate in cfg.Models until one succeeds. A model
// the backend does not serve advances to the next candidate; any other
// failure stops the cascade.
func RunCascade(ctx context.Context, gen Generator, cfg model.GuideModelConfig, prompt string) CascadeResult {
	var res CascadeResult
	if len(cfg.Models) == 0 {
		res.Err = errx.New(errx.ConfigurationMismatch, nil, "no guide models configured")
		return res
	}

	var lastErr error
	for _, id := range cfg.Models {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, cfg.CallTimeout)
		}
		out, err := gen.Generate(callCtx, GenerateRequest{
			Model:             id,
			SystemInstruction: cfg.SystemInstruction,
			Prompt:            prompt,
		})
		cancel()

		if err == nil {
			res.Attempts = append(res.Attempts, model.Attempt{Model: id})
			res.Text, res.Model, res.Usage = out.Text, id, out.Usage
			return res
		}

		kind := Classify(err)
		if ctx.Err() != nil && kind != errx.RemoteTimeout {
			// the caller gave up; nothing further is worth trying
			kind = errx.RemoteFailure
		}
		res.Attempts = append(res.Attempts, model.Attempt{Model: id, Err: err, Kind: kind})
		logx.Debug().Err(err).Str("model", id).Str("kind", string(kind)).Msg("Guide candidate failed")

		if kind != errx.ModelUnavailable {
			res.Err = errx.New(kind, err, fmt.Sprintf("guide model %s failed", id))
			return res
		}
		lastErr = err
	}

	res.Err = errx.New(errx.ModelUnavailable, lastErr, fmt.Sprintf("none of %d guide models is available", len(cfg.Models)))
	return res
}
