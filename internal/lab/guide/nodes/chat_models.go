package nodes

import (
	"context"
	"fmt"
	"sync"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	logx "github.com/VirtuLab-core-poc-v1/server/pkg/logger"
)

// GenerateRequest is one call to one candidate model.
type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
}

// Generation is the text a candidate produced and what it cost.
type Generation struct {
	Text  string
	Usage *schema.TokenUsage
}

// Generator performs a single remote generation. Errors are returned as-is;
// classification happens in the cascade.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Generation, error)
}

// ChatModelConfig holds the credentials for the Gemini backend.
type ChatModelConfig struct {
	APIKey  string
	BaseURL string
	Model   model.GuideModelConfig
}

// GeminiGenerator serves GenerateRequests through eino-ext Gemini chat
// models, one per candidate id, created lazily over a shared genai client.
type GeminiGenerator struct {
	client *genai.Client
	cfg    model.GuideModelConfig

	mu     sync.Mutex
	models map[string]*gemini.ChatModel
}

// NewGeminiGenerator creates the shared Gemini client.
func NewGeminiGenerator(ctx context.Context, config ChatModelConfig) (*GeminiGenerator, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		cfg:    config.Model,
		models: make(map[string]*gemini.ChatModel),
	}, nil
}

func (g *GeminiGenerator) chatModel(ctx context.Context, modelID string) (*gemini.ChatModel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cm, ok := g.models[modelID]; ok {
		return cm, nil
	}
	temperature := g.cfg.Temperature
	maxTokens := g.cfg.MaxTokens
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      g.client,
		Model:       modelID,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating chat model %s: %w", modelID, err)
	}
	g.models[modelID] = cm
	return cm, nil
}

// Generate runs one candidate. Model callbacks registered on ctx observe the
// call under the candidate's name.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (Generation, error) {
	cm, err := g.chatModel(ctx, req.Model)
	if err != nil {
		return Generation{}, err
	}

	ctx = einocb.ReuseHandlers(ctx, &einocb.RunInfo{
		Name:      req.Model,
		Type:      "Gemini",
		Component: components.ComponentOfChatModel,
	})

	out, err := cm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(req.SystemInstruction),
		schema.UserMessage(req.Prompt),
	})
	if err != nil {
		return Generation{}, err
	}
	gen := Generation{Text: out.Content}
	if out.ResponseMeta != nil {
		gen.Usage = out.ResponseMeta.Usage
	}
	return gen, nil
}
