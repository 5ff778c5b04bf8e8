package infra

import (
	"context"
	"testing"
	"time"

	"contact-gateway/contactform/domain"
)

func TestMemoryStatsStore(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	events := []domain.StatsEvent{
		{Key: "a", Outcome: domain.OutcomeAccepted},
		{Key: "a", Outcome: domain.OutcomeAccepted},
		{Key: "b", Outcome: domain.OutcomeSpam},
		{Key: "", Outcome: domain.OutcomeInvalid},
	}
	for _, ev := range events {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	totals, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals["accepted"] != 2 || totals["spam"] != 1 || totals["invalid"] != 1 {
		t.Fatalf("unexpected totals %v", totals)
	}
	if got := s.ByKey("a")[domain.OutcomeAccepted]; got != 2 {
		t.Fatalf("expected 2 accepted for a, got %d", got)
	}
}

func TestMemoryStatsStore_KeysOffByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "a", Outcome: domain.OutcomeSpam})

	if len(s.ByKey("a")) != 0 {
		t.Fatalf("expected no per-key stats by default")
	}
}

func TestRedisStatsStore_Record(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("test:stats:"), WithStatsTrackKeys(true), WithStatsTTL(time.Hour))
	ctx := context.Background()
	at := time.Date(2026, 2, 3, 14, 25, 0, 0, time.UTC)

	for _, o := range []domain.Outcome{domain.OutcomeAccepted, domain.OutcomeAccepted, domain.OutcomeRateLimited} {
		if err := s.Record(ctx, domain.StatsEvent{Key: "1.2.3.4", Outcome: o, At: at}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	totals, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals["accepted"] != 2 || totals["rate_limited"] != 1 {
		t.Fatalf("unexpected totals %v", totals)
	}

	if got := mr.HGet("test:stats:hour:2026020314", "accepted"); got != "2" {
		t.Fatalf("expected hour bucket accepted=2, got %q", got)
	}
	if ttl := mr.TTL("test:stats:hour:2026020314"); ttl != time.Hour {
		t.Fatalf("expected bucket ttl 1h, got %s", ttl)
	}
	if got := mr.HGet("test:stats:key:1.2.3.4", "rate_limited"); got != "1" {
		t.Fatalf("expected per-key counter, got %q", got)
	}
	if mr.TTL("test:stats:total") != 0 {
		t.Fatalf("total must not expire")
	}
}

func TestRedisStatsStore_NoBucket(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsBucket("none"))

	if err := s.Record(context.Background(), domain.StatsEvent{Key: "k", Outcome: domain.OutcomeSpam}); err != nil {
		t.Fatalf("record: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "contact:stats:total" {
		t.Fatalf("expected only the total hash, got %v", keys)
	}
}
