// Package session runs one lab practical: the apparatus of the chosen
// experiment, its tick schedule and the guide conversation, all owned by a
// single event-loop goroutine.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/apparatus"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide/conversations"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	logx "github.com/VirtuLab-core-poc-v1/server/pkg/logger"
)

// ErrClosed is returned by every operation on a closed session.
var ErrClosed = errors.New("lab session is closed")

// ErrGuideBusy is returned by Ask while the previous question is unanswered.
var ErrGuideBusy = conversations.ErrGuideBusy

const (
	defaultRewardXP = 500
	mirrorBuffer    = 64
	mirrorTimeout   = 3 * time.Second
)

// Guide resolves one question into one reply. It must honour ctx.
type Guide interface {
	Resolve(ctx context.Context, req model.GuideRequest) model.GuideReply
}

// CompletionFunc receives the completion event of a finished practical.
type CompletionFunc func(ctx context.Context, c model.Completion) error

// Config describes one lab session.
type Config struct {
	Experiment   model.Experiment
	Session      model.SessionConfig
	Apparatus    model.ApparatusConfig
	HistoryTurns int

	// Ticks defaults to TickerSource.
	Ticks TickSource
	// Transcript, when set, receives a best-effort copy of every message.
	Transcript model.TranscriptRepository
	OnComplete CompletionFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a consistent copy of the session's readable state.
type Snapshot struct {
	SessionID    string
	Experiment   model.Experiment
	Reading      model.Reading
	Conversation []*schema.Message
	Typing       bool
}

// Session is safe for concurrent use. All state below the loop marker is
// touched only by the event loop goroutine.
type Session struct {
	id    string
	cfg   Config
	guide Guide
	log   zerolog.Logger

	ops       chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mirror     chan *schema.Message
	mirrorDone chan struct{}

	// loop
	apparatus *apparatus.Model
	dialogue  *conversations.Dialogue
	completed bool
}

// Open builds the apparatus and greeting for cfg.Experiment and starts the
// event loop and tick schedule.
func Open(ctx context.Context, cfg Config, guide Guide) (*Session, error) {
	if guide == nil {
		return nil, errx.New(errx.ConfigurationMismatch, nil, "lab session needs a guide")
	}
	app, err := apparatus.New(cfg.Experiment.Kind, cfg.Apparatus)
	if err != nil {
		return nil, err
	}
	interval := apparatus.TickInterval(cfg.Experiment.Kind, cfg.Apparatus)
	if interval <= 0 {
		return nil, errx.Newf(errx.ConfigurationMismatch, "tick interval for %s must be positive", cfg.Experiment.Kind)
	}
	if cfg.Ticks == nil {
		cfg.Ticks = TickerSource
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Session.StudentName == "" {
		cfg.Session.StudentName = "Explorer"
	}

	id := uuid.NewString()
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		id:    id,
		cfg:   cfg,
		guide: guide,
		log: logx.With(map[string]string{
			"session_id":    id,
			"experiment_id": cfg.Experiment.ID,
		}),
		ops:       make(chan func()),
		ctx:       sctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		apparatus: app,
		dialogue: conversations.NewDialogue(
			conversations.Greeting(cfg.Session.StudentName, cfg.Experiment.Title),
			cfg.HistoryTurns,
		),
	}

	if cfg.Transcript != nil {
		s.mirror = make(chan *schema.Message, mirrorBuffer)
		s.mirrorDone = make(chan struct{})
		go s.runMirror()
		s.push(s.dialogue.Messages()[0])
	}

	tick, stop := cfg.Ticks(interval)
	go s.run(tick, stop)

	s.log.Info().Str("kind", string(cfg.Experiment.Kind)).Str("student", cfg.Session.StudentName).Msg("Lab session opened")
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) run(tick <-chan time.Time, stop func()) {
	defer close(s.done)
	defer stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case op := <-s.ops:
			op()
		case <-tick:
			s.apparatus.Tick()
		}
	}
}

// exec runs fn on the event loop and waits for it. fn is skipped once Close
// has begun, even if the loop has not yet noticed.
func (s *Session) exec(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	var closed bool
	op := func() {
		defer close(ran)
		if s.ctx.Err() != nil {
			closed = true
			return
		}
		fn()
	}
	select {
	case s.ops <- op:
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	if closed {
		return ErrClosed
	}
	return nil
}

// Do applies an apparatus command.
func (s *Session) Do(ctx context.Context, cmd apparatus.Command) error {
	var err error
	if e := s.exec(ctx, func() { err = s.apparatus.Apply(cmd) }); e != nil {
		return e
	}
	if err != nil {
		s.log.Debug().Err(err).Str("command", commandName(cmd)).Msg("Apparatus command rejected")
	}
	return err
}

// Ask submits a question and waits for the guide's reply. The apparatus keeps
// ticking while the reply is resolved. A reply that arrives after Close is
// dropped and ErrClosed is returned.
func (s *Session) Ask(ctx context.Context, question string) (model.GuideReply, error) {
	var (
		req model.GuideRequest
		err error
	)
	e := s.exec(ctx, func() {
		var msg *schema.Message
		var history []*schema.Message
		msg, history, err = s.dialogue.Submit(question)
		if err != nil {
			return
		}
		s.push(msg)
		req = model.GuideRequest{
			SessionID:  s.id,
			Experiment: s.cfg.Experiment,
			Question:   msg.Content,
			Reading:    s.apparatus.Reading(),
			History:    history,
		}
	})
	if e != nil {
		return model.GuideReply{}, e
	}
	if err != nil {
		return model.GuideReply{}, err
	}

	rctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	reply := s.guide.Resolve(rctx, req)
	stop()
	cancel()

	// the reply is appended even if the caller gave up, so typing always clears
	var dropped bool
	e = s.exec(context.WithoutCancel(ctx), func() {
		msg := s.dialogue.Complete(reply.Text)
		if msg == nil {
			dropped = true
			return
		}
		s.push(msg)
	})
	if e != nil || dropped {
		s.log.Debug().Str("outcome", string(reply.Outcome)).Msg("Late guide reply dropped")
		return model.GuideReply{}, ErrClosed
	}

	s.log.Info().
		Str("outcome", string(reply.Outcome)).
		Str("model", reply.Model).
		Int("attempts", len(reply.Attempts)).
		Msg("Guide replied")
	return reply, nil
}

// Snapshot returns the current reading, a copy of the conversation and the
// typing flag.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.exec(ctx, func() {
		snap = Snapshot{
			SessionID:    s.id,
			Experiment:   s.cfg.Experiment,
			Reading:      s.apparatus.Reading(),
			Conversation: s.dialogue.Messages(),
			Typing:       s.dialogue.Typing(),
		}
	})
	return snap, err
}

// Complete finishes the practical: the completion event goes to OnComplete
// and the session is closed, so a later call fails with ErrClosed. Of two
// concurrent calls only one completes; the other fails with InvalidCommand.
func (s *Session) Complete(ctx context.Context) (model.Completion, error) {
	var (
		c       model.Completion
		already bool
	)
	err := s.exec(ctx, func() {
		if s.completed {
			already = true
			return
		}
		s.completed = true
		c = model.Completion{
			SessionID:    s.id,
			ExperimentID: s.cfg.Experiment.ID,
			StudentName:  s.cfg.Session.StudentName,
			RewardXP:     s.rewardXP(),
			FinishedAt:   s.cfg.Now(),
		}
	})
	if err != nil {
		return model.Completion{}, err
	}
	if already {
		return model.Completion{}, errx.New(errx.InvalidCommand, nil, "practical already completed")
	}

	if s.cfg.OnComplete != nil {
		err = s.cfg.OnComplete(ctx, c)
		if err != nil {
			s.log.Error().Err(err).Msg("Completion callback failed")
		}
	}
	s.log.Info().Int("reward_xp", c.RewardXP).Msg("Practical completed")
	s.Close()
	return c, err
}

// Close stops ticking, cancels in-flight guidance and flushes the transcript
// mirror. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		if s.mirror != nil {
			close(s.mirror)
			<-s.mirrorDone
		}
		s.log.Debug().Msg("Lab session closed")
	})
}

func (s *Session) rewardXP() int {
	switch {
	case s.cfg.Session.RewardXP > 0:
		return s.cfg.Session.RewardXP
	case s.cfg.Experiment.RewardXP > 0:
		return s.cfg.Experiment.RewardXP
	}
	return defaultRewardXP
}

// push queues msg for the transcript mirror without blocking the loop.
func (s *Session) push(msg *schema.Message) {
	if s.mirror == nil {
		return
	}
	cp := *msg
	select {
	case s.mirror <- &cp:
	default:
		s.log.Warn().Str("role", string(msg.Role)).Msg("Transcript mirror full - message not mirrored")
	}
}

func (s *Session) runMirror() {
	defer close(s.mirrorDone)
	for msg := range s.mirror {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		if err := s.cfg.Transcript.AddMessage(ctx, s.id, msg); err != nil {
			s.log.Warn().Err(err).Str("role", string(msg.Role)).Msg("Failed to mirror transcript message")
		}
		cancel()
	}
}

func commandName(cmd apparatus.Command) string {
	if cmd == nil {
		return "<nil>"
	}
	return cmd.Name()
}
