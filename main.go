package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/VirtuLab-core-poc-v1/server/internal/core"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/repo"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/session"
	logx "github.com/VirtuLab-core-poc-v1/server/pkg/logger"
	pkgredis "github.com/VirtuLab-core-poc-v1/server/pkg/redis"
	pkgsqlite "github.com/VirtuLab-core-poc-v1/server/pkg/sqlite"
)

// AppConfig defines all configurable parameters of the lab engine, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure, all optional
	Redis   pkgredis.Config
	Profile pkgsqlite.Config

	// LLM provider; without a key the guide answers offline only
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	Guide        model.GuideModelConfig
	Conversation model.ConversationConfig
	Session      model.SessionConfig
	Apparatus    model.ApparatusConfig
}

// app is the wired lab engine shared by the commands.
type app struct {
	cfg        AppConfig
	catalog    *model.Catalog
	guide      *guide.Controller
	transcript model.TranscriptRepository
	profiles   model.ProfileStore
	closers    []func() error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "virtulab",
		Short: "VirtuLab - virtual science practicals with a lab guide",
		Long: `virtulab runs the integrated-science practicals of VirtuLab from the console.

Each practical simulates its apparatus (Bunsen burner, beam balance or
thermometer) in real time while a lab guide answers questions, online via
Gemini when GEMINI_API_KEY is set and offline otherwise.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading config")
	rootCmd.PersistentFlags().String("student", "", "Student name (overrides STUDENT_NAME)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newCatalogCmd(),
		newLabCmd(),
		newAskCmd(),
		newTranscriptCmd(),
	)
	return rootCmd
}

// loadConfig reads .env (if present) and the process environment.
func loadConfig(cmd *cobra.Command) (AppConfig, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", envFile, err)
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to process environment config: %w", err)
	}
	if student, _ := cmd.Flags().GetString("student"); student != "" {
		cfg.Session.StudentName = student
	}
	return cfg, nil
}

// newApp wires the catalog, guide and optional stores. logOut receives the
// log stream so interactive output stays readable.
func newApp(ctx context.Context, cfg AppConfig, logOut io.Writer) (*app, error) {
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel, Output: logOut})

	catalog, err := model.LoadCatalog()
	if err != nil {
		return nil, err
	}
	ctrl, err := guide.NewController(ctx, guide.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Guide,
		Conversation: cfg.Conversation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build guide: %w", err)
	}

	a := &app{cfg: cfg, catalog: catalog, guide: ctrl}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		a.transcript = repo.NewRedisTranscriptRepository(rdb, cfg.Conversation.TranscriptTTL)
		logx.Debug().Msg("Connected to Redis successfully")
	}

	switch {
	case cfg.Profile.Enabled():
		store, err := repo.OpenSQLiteProfileStore(ctx, cfg.Profile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open profile database: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.profiles = store
	case rdb != nil:
		a.profiles = repo.NewRedisProfileStore(rdb)
	}
	return a, nil
}

// openSession starts a practical for the experiment id.
func (a *app) openSession(ctx context.Context, experimentID string) (*session.Session, error) {
	exp, err := a.catalog.Get(experimentID)
	if err != nil {
		return nil, err
	}
	cfg := session.Config{
		Experiment:   exp,
		Session:      a.cfg.Session,
		Apparatus:    a.cfg.Apparatus,
		HistoryTurns: a.cfg.Conversation.HistoryTurns,
		Transcript:   a.transcript,
	}
	if a.profiles != nil {
		cfg.OnComplete = repo.RecordCompletion(a.profiles)
	}
	return session.Open(ctx, cfg, a.guide)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
