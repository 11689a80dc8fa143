package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"sidehug/internal/config"
)

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(config.RedisConfig{Addr: mr.Addr()})
	defer rdb.Close()

	res, err := Ping(context.Background(), rdb, time.Second)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if res != "PONG" {
		t.Fatalf("got %q", res)
	}
}

func TestPingUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb := New(config.RedisConfig{Addr: addr})
	defer rdb.Close()
	if _, err := Ping(context.Background(), rdb, 200*time.Millisecond); err == nil {
		t.Fatal("expected error for closed server")
	}
}
