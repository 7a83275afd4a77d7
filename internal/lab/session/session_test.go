package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/apparatus"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

type guideFunc func(ctx context.Context, req model.GuideRequest) model.GuideReply

func (f guideFunc) Resolve(ctx context.Context, req model.GuideRequest) model.GuideReply {
	return f(ctx, req)
}

func echoGuide() Guide {
	return guideFunc(func(ctx context.Context, req model.GuideRequest) model.GuideReply {
		return model.GuideReply{Text: "re: " + req.Question, Outcome: model.OutcomeOffline}
	})
}

// blockingGuide signals started and then waits for release or ctx.
type blockingGuide struct {
	started chan model.GuideRequest
	release chan struct{}
}

func newBlockingGuide() *blockingGuide {
	return &blockingGuide{started: make(chan model.GuideRequest, 1), release: make(chan struct{})}
}

func (g *blockingGuide) Resolve(ctx context.Context, req model.GuideRequest) model.GuideReply {
	g.started <- req
	select {
	case <-g.release:
		return model.GuideReply{Text: "done", Outcome: model.OutcomeOnline}
	case <-ctx.Done():
		return model.GuideReply{Text: "late", Outcome: model.OutcomeError, ErrKind: errx.RemoteFailure}
	}
}

type memTranscript struct {
	mu   sync.Mutex
	msgs map[string][]*schema.Message
}

func newMemTranscript() *memTranscript {
	return &memTranscript{msgs: map[string][]*schema.Message{}}
}

func (m *memTranscript) AddMessage(_ context.Context, id string, msg *schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs[id] = append(m.msgs[id], msg)
	return nil
}

func (m *memTranscript) LoadHistory(_ context.Context, id string) (*model.ConversationHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.ConversationHistory{SessionID: id, Messages: append([]*schema.Message(nil), m.msgs[id]...)}, nil
}

func (m *memTranscript) ClearHistory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.msgs, id)
	return nil
}

func (m *memTranscript) GetMessageCount(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs[id]), nil
}

func manualTicks() (TickSource, chan time.Time) {
	ch := make(chan time.Time)
	return func(time.Duration) (<-chan time.Time, func()) { return ch, func() {} }, ch
}

var (
	burner  = model.Experiment{ID: "bunsen-burner", Title: "Bunsen Burner", Kind: model.KindHeater, RewardXP: 500}
	balance = model.Experiment{ID: "beam-balance", Title: "Beam Balance", Kind: model.KindBeamBalance, RewardXP: 500}
)

func openTest(t *testing.T, exp model.Experiment, guide Guide, mutate ...func(*Config)) (*Session, chan time.Time) {
	t.Helper()
	ticks, ch := manualTicks()
	cfg := Config{
		Experiment:   exp,
		Session:      model.SessionConfig{StudentName: "Amani"},
		Apparatus:    model.DefaultApparatusConfig(),
		HistoryTurns: 4,
		Ticks:        ticks,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := Open(context.Background(), cfg, guide)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s, ch
}

func snapshot(t *testing.T, s *Session) Snapshot {
	t.Helper()
	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

func TestOpenGreets(t *testing.T) {
	s, _ := openTest(t, burner, echoGuide())

	if _, err := uuid.Parse(s.ID()); err != nil {
		t.Fatalf("session id %q is not a uuid: %v", s.ID(), err)
	}
	snap := snapshot(t, s)
	if len(snap.Conversation) != 1 {
		t.Fatalf("conversation len = %d, want 1", len(snap.Conversation))
	}
	want := `Habari Scientist Amani! I'm your VirtuLab Assistant. We are starting "Bunsen Burner".`
	if got := snap.Conversation[0]; got.Role != schema.Assistant || got.Content != want {
		t.Fatalf("greeting = %+v", got)
	}
	if snap.Reading.Kind != model.KindHeater || snap.Reading.TemperatureC != 25 || snap.Typing {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestOpenRejectsUnknownKind(t *testing.T) {
	ticks, _ := manualTicks()
	_, err := Open(context.Background(), Config{
		Experiment: model.Experiment{ID: "x", Kind: "centrifuge"},
		Apparatus:  model.DefaultApparatusConfig(),
		Ticks:      ticks,
	}, echoGuide())
	if !errx.IsKind(err, errx.ConfigurationMismatch) {
		t.Fatalf("err = %v, want ConfigurationMismatch", err)
	}
}

func TestConversationGrowsByTwoPerAnsweredQuestion(t *testing.T) {
	s, _ := openTest(t, balance, echoGuide())

	const n = 5
	for i := 0; i < n; i++ {
		reply, err := s.Ask(context.Background(), fmt.Sprintf("question %d", i))
		if err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
		if reply.Text != fmt.Sprintf("re: question %d", i) {
			t.Fatalf("reply %d = %q", i, reply.Text)
		}
	}
	snap := snapshot(t, s)
	if len(snap.Conversation) != 1+2*n {
		t.Fatalf("conversation len = %d, want %d", len(snap.Conversation), 1+2*n)
	}
	for i := 1; i < len(snap.Conversation); i += 2 {
		if snap.Conversation[i].Role != schema.User || snap.Conversation[i+1].Role != schema.Assistant {
			t.Fatalf("messages %d,%d out of order", i, i+1)
		}
	}
	if snap.Typing {
		t.Fatal("typing left set")
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	s, _ := openTest(t, balance, echoGuide())
	if _, err := s.Ask(context.Background(), "  "); !errx.IsKind(err, errx.InvalidCommand) {
		t.Fatalf("err = %v, want InvalidCommand", err)
	}
	if snap := snapshot(t, s); len(snap.Conversation) != 1 || snap.Typing {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestAskWhileBusy(t *testing.T) {
	g := newBlockingGuide()
	s, _ := openTest(t, burner, g)

	type result struct {
		reply model.GuideReply
		err   error
	}
	first := make(chan result, 1)
	go func() {
		r, err := s.Ask(context.Background(), "first")
		first <- result{r, err}
	}()
	<-g.started

	if _, err := s.Ask(context.Background(), "second"); !errors.Is(err, ErrGuideBusy) {
		t.Fatalf("second Ask err = %v, want ErrGuideBusy", err)
	}
	snap := snapshot(t, s)
	if !snap.Typing || len(snap.Conversation) != 2 {
		t.Fatalf("while busy: typing=%v len=%d", snap.Typing, len(snap.Conversation))
	}

	close(g.release)
	r := <-first
	if r.err != nil || r.reply.Text != "done" {
		t.Fatalf("first Ask = %+v, %v", r.reply, r.err)
	}
	snap = snapshot(t, s)
	if snap.Typing || len(snap.Conversation) != 3 {
		t.Fatalf("after reply: typing=%v len=%d", snap.Typing, len(snap.Conversation))
	}
}

func TestTicksContinueWhileGuideResolves(t *testing.T) {
	g := newBlockingGuide()
	s, ticks := openTest(t, burner, g)
	ctx := context.Background()

	if err := s.Do(ctx, apparatus.ToggleLit{}); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Ask(ctx, "is it hot yet?")
	}()
	req := <-g.started
	if !req.Reading.Lit || req.SessionID != s.ID() || len(req.History) != 1 {
		t.Fatalf("request = %+v", req)
	}

	for i := 0; i < 5; i++ {
		ticks <- time.Now()
	}
	if got := snapshot(t, s).Reading.TemperatureC; got <= 25 {
		t.Fatalf("temperature = %v, want it rising while the guide resolves", got)
	}
	close(g.release)
	<-done
}

func TestCloseDropsLateReply(t *testing.T) {
	g := newBlockingGuide()
	tr := newMemTranscript()
	s, _ := openTest(t, burner, g, func(c *Config) { c.Transcript = tr })

	errc := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "still there?")
		errc <- err
	}()
	<-g.started
	s.Close()

	if err := <-errc; !errors.Is(err, ErrClosed) {
		t.Fatalf("Ask err = %v, want ErrClosed", err)
	}
	if n, _ := tr.GetMessageCount(context.Background(), s.ID()); n != 2 {
		t.Fatalf("mirrored messages = %d, want greeting and question only", n)
	}
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Snapshot after Close err = %v", err)
	}
	if err := s.Do(context.Background(), apparatus.ToggleLit{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Do after Close err = %v", err)
	}
	s.Close()
}

func TestTranscriptMirrorKeepsOrder(t *testing.T) {
	tr := newMemTranscript()
	s, _ := openTest(t, balance, echoGuide(), func(c *Config) { c.Transcript = tr })

	for _, q := range []string{"one", "two"} {
		if _, err := s.Ask(context.Background(), q); err != nil {
			t.Fatal(err)
		}
	}
	s.Close()

	h, _ := tr.LoadHistory(context.Background(), s.ID())
	want := []string{"", "one", "re: one", "two", "re: two"}
	if len(h.Messages) != len(want) {
		t.Fatalf("mirrored %d messages, want %d", len(h.Messages), len(want))
	}
	for i, w := range want[1:] {
		if h.Messages[i+1].Content != w {
			t.Fatalf("message %d = %q, want %q", i+1, h.Messages[i+1].Content, w)
		}
	}
}

func TestDoRoutesCommands(t *testing.T) {
	s, _ := openTest(t, balance, echoGuide())
	ctx := context.Background()

	for _, m := range []int{10, 5} {
		if err := s.Do(ctx, apparatus.AddWeight{Side: model.SideRight, Mass: m}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Do(ctx, apparatus.AddWeight{Side: model.SideLeft, Mass: 15}); err != nil {
		t.Fatal(err)
	}
	b := snapshot(t, s).Reading.Balance
	if b == nil || !b.Balanced || b.LeftMass != 15 || b.RightMass != 15 {
		t.Fatalf("balance = %+v", b)
	}

	if err := s.Do(ctx, apparatus.ToggleLit{}); !errx.IsKind(err, errx.ConfigurationMismatch) {
		t.Fatalf("wrong-kind err = %v", err)
	}
	if err := s.Do(ctx, apparatus.AddWeight{Side: model.SideLeft, Mass: 0}); !errx.IsKind(err, errx.InvalidCommand) {
		t.Fatalf("zero mass err = %v", err)
	}
}

func TestCompleteEmitsEvent(t *testing.T) {
	finished := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var got []model.Completion
	s, _ := openTest(t, burner, echoGuide(), func(c *Config) {
		c.Now = func() time.Time { return finished }
		c.OnComplete = func(_ context.Context, ev model.Completion) error {
			got = append(got, ev)
			return nil
		}
	})

	c, err := s.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	want := model.Completion{
		SessionID:    s.ID(),
		ExperimentID: "bunsen-burner",
		StudentName:  "Amani",
		RewardXP:     500,
		FinishedAt:   finished,
	}
	if c != want || len(got) != 1 || got[0] != want {
		t.Fatalf("completion = %+v, callback got %+v", c, got)
	}
	if _, err := s.Complete(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Complete err = %v, want ErrClosed", err)
	}
	if len(got) != 1 {
		t.Fatalf("callback ran %d times", len(got))
	}
}

func TestCompleteRewardOverrideAndCallbackError(t *testing.T) {
	boom := errors.New("store down")
	s, _ := openTest(t, balance, echoGuide(), func(c *Config) {
		c.Session.RewardXP = 750
		c.OnComplete = func(context.Context, model.Completion) error { return boom }
	})

	c, err := s.Complete(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want callback error", err)
	}
	if c.RewardXP != 750 {
		t.Fatalf("reward = %d, want 750", c.RewardXP)
	}
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatal("session still open after Complete")
	}
}
