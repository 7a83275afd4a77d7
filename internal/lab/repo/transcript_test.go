package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestTranscriptRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewRedisTranscriptRepository(rdb, time.Hour)
	ctx := context.Background()

	msgs := []*schema.Message{
		schema.AssistantMessage("Habari Scientist Amani!", nil),
		schema.UserMessage("why is the flame blue?"),
		schema.AssistantMessage("Open air hole means complete combustion.", nil),
	}
	for _, m := range msgs {
		if err := repo.AddMessage(ctx, "s1", m); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	n, err := repo.GetMessageCount(ctx, "s1")
	if err != nil || n != 3 {
		t.Fatalf("GetMessageCount = %d, %v", n, err)
	}
	h, err := repo.LoadHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if h.SessionID != "s1" || len(h.Messages) != 3 {
		t.Fatalf("history = %+v", h)
	}
	for i, m := range h.Messages {
		if m.Role != msgs[i].Role || m.Content != msgs[i].Content {
			t.Fatalf("message %d = %+v, want %+v", i, m, msgs[i])
		}
	}
	if ttl := mr.TTL("labsession:s1:messages"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}

	if err := repo.ClearHistory(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := repo.GetMessageCount(ctx, "s1"); n != 0 {
		t.Fatalf("count after clear = %d", n)
	}
}

func TestTranscriptMissingSessionIsEmpty(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewRedisTranscriptRepository(rdb, 0)

	h, err := repo.LoadHistory(context.Background(), "nobody")
	if err != nil || len(h.Messages) != 0 {
		t.Fatalf("LoadHistory = %+v, %v", h, err)
	}
}

func TestTranscriptClientClosed(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewRedisTranscriptRepository(rdb, 0)
	rdb.Close()

	err := repo.AddMessage(context.Background(), "s1", schema.UserMessage("hi"))
	if !errx.IsKind(err, errx.Storage) {
		t.Fatalf("err = %v, want Storage", err)
	}
}
