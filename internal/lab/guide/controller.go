// Package guide resolves student questions into exactly one assistant reply,
// either from the offline knowledge base or from a cascade of remote models.
package guide

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide/knowledge"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide/nodes"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide/observers"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	logx "github.com/VirtuLab-core-poc-v1/server/pkg/logger"
)

// Config holds everything needed to build the guide dialogue graph.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        model.GuideModelConfig
	Conversation model.ConversationConfig

	// Knowledge defaults to the embedded rules.
	Knowledge *knowledge.Base
	// Generator replaces the Gemini backend when set. It is only used when
	// APIKey is present.
	Generator nodes.Generator
}

// Controller is safe for concurrent use; each Resolve runs its own graph
// invocation with private state.
type Controller struct {
	runnable compose.Runnable[model.GuideRequest, model.GuideReply]
	models   []string
}

// GraphBuilder handles the construction of the guide dialogue graph.
type GraphBuilder struct {
	kb          *knowledge.Base
	gen         nodes.Generator
	modelCfg    model.GuideModelConfig
	offline     map[model.Kind]bool
	remoteReady bool
	graph       *compose.Graph[model.GuideRequest, model.GuideReply]
}

// NewController builds the Gemini backend (when a key is configured) and
// compiles the dialogue graph.
func NewController(ctx context.Context, cfg Config) (*Controller, error) {
	kb := cfg.Knowledge
	if kb == nil {
		kb = knowledge.Default()
	}

	offline := make(map[model.Kind]bool, len(cfg.Conversation.OfflineKinds))
	for _, k := range cfg.Conversation.OfflineKinds {
		kind, err := model.ParseKind(k)
		if err != nil {
			return nil, errx.New(errx.ConfigurationMismatch, err, "invalid GUIDE_OFFLINE_KINDS")
		}
		offline[kind] = true
	}

	remoteReady := cfg.APIKey != ""
	gen := cfg.Generator
	if remoteReady && gen == nil {
		g, err := nodes.NewGeminiGenerator(ctx, nodes.ChatModelConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, err
		}
		gen = g
	}
	if gen == nil {
		gen = unconfigured{}
	}

	b := &GraphBuilder{
		kb:          kb,
		gen:         gen,
		modelCfg:    cfg.Model,
		offline:     offline,
		remoteReady: remoteReady,
		graph: compose.NewGraph[model.GuideRequest, model.GuideReply](
			compose.WithGenLocalState(func(ctx context.Context) *model.GuideState {
				return &model.GuideState{}
			}),
		),
	}
	runnable, err := b.build(ctx)
	if err != nil {
		return nil, err
	}

	logx.Debug().Bool("remote", remoteReady).Strs("models", cfg.Model.Models).Msg("Guide graph built successfully")
	return &Controller{runnable: runnable, models: cfg.Model.Models}, nil
}

// Resolve answers one question. It never fails: every path, including a
// graph error or a cancelled ctx, yields a reply.
func (c *Controller) Resolve(ctx context.Context, req model.GuideRequest) model.GuideReply {
	out, err := c.runnable.Invoke(ctx, req, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		kind := errx.KindOf(err)
		if kind == "" {
			kind = errx.RemoteFailure
		}
		logx.Error().Err(err).Str("session_id", req.SessionID).Msg("Guide graph failed")
		return model.GuideReply{
			Text:    nodes.FailureReport(err, c.models),
			Outcome: model.OutcomeError,
			ErrKind: kind,
		}
	}
	return out
}

func (b *GraphBuilder) build(ctx context.Context) (compose.Runnable[model.GuideRequest, model.GuideReply], error) {
	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	attempts := compose.WithStatePostHandler(nodes.NewAttemptsPostHandler())

	type node struct {
		name   string
		lambda *compose.Lambda
		opts   []compose.GraphAddNodeOpt
	}
	all := []node{
		{nodes.NodeRoute, nodes.NewRouteNode(), []compose.GraphAddNodeOpt{compose.WithStatePreHandler(nodes.NewRoutePreHandler())}},
		{nodes.NodeOffline, nodes.NewOfflineNode(b.kb), []compose.GraphAddNodeOpt{attempts}},
		{nodes.NodeConfigError, nodes.NewConfigErrorNode(), []compose.GraphAddNodeOpt{attempts}},
		{nodes.NodeOfflineFallback, nodes.NewOfflineFallbackNode(b.kb), []compose.GraphAddNodeOpt{attempts}},
		{nodes.NodeErrorReport, nodes.NewErrorReportNode(b.modelCfg), []compose.GraphAddNodeOpt{attempts}},
		{nodes.NodeRemote, nodes.NewRemoteNode(b.gen, b.modelCfg), nil},
		{nodes.NodeRemoteReply, nodes.NewRemoteReplyNode(), []compose.GraphAddNodeOpt{attempts}},
	}

	for _, n := range all {
		if err := b.graph.AddLambdaNode(n.name, n.lambda, n.opts...); err != nil {
			return fmt.Errorf("error adding node %s: %w", n.name, err)
		}
	}
	return nil
}

// addEdges connects the start and the terminal nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeRoute},
		{nodes.NodeOffline, compose.END},
		{nodes.NodeConfigError, compose.END},
		{nodes.NodeRemoteReply, compose.END},
		{nodes.NodeOfflineFallback, compose.END},
		{nodes.NodeErrorReport, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the routing and terminal classification branches
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewRouteCondition(b.offline, b.remoteReady),
		map[string]bool{
			nodes.NodeOffline:     true,
			nodes.NodeConfigError: true,
			nodes.NodeRemote:      true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRoute, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}

	remoteBranch := compose.NewGraphBranch(
		nodes.NewRemoteCondition(),
		map[string]bool{
			nodes.NodeRemoteReply:     true,
			nodes.NodeOfflineFallback: true,
			nodes.NodeErrorReport:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRemote, remoteBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding remote branch")
		return fmt.Errorf("error adding remote branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.GuideRequest, model.GuideReply], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("GuideDialogue"),
		compose.WithMaxRunSteps(10),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	return runnable, nil
}

// unconfigured stands behind the remote node when no key is set; the route
// branch never reaches it.
type unconfigured struct{}

func (unconfigured) Generate(context.Context, nodes.GenerateRequest) (nodes.Generation, error) {
	return nodes.Generation{}, errx.New(errx.ConfigurationMismatch, nil, "remote guide is not configured")
}
