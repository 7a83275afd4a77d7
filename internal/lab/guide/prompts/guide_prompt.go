package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide/conversations"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

//go:embed template/guide_prompt.txt
var guidePrompt string

// RenderGuidePrompt renders the user prompt for a remote guide call via the
// Eino prompt component, which also emits prompt callbacks.
func RenderGuidePrompt(ctx context.Context, req model.GuideRequest) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(guidePrompt),
	)
	vars := map[string]any{
		"Title":       req.Experiment.Title,
		"Subject":     req.Experiment.Subject,
		"Section":     req.Experiment.Section,
		"Description": req.Experiment.Description,
		"Reading":     req.Reading.Summary(),
		"History":     conversations.FormatHistory(req.History),
		"Question":    req.Question,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("guide prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("guide prompt render: empty result")
	}
	return msgs[0].Content, nil
}
