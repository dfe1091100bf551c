package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"

	"github.com/feltvision/tablesight/pkg/table"
)

func TestRedisPublish(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	p := NewRedis(rdb, "tablesight", "run-1", 10*time.Second)

	st := table.State{Tick: 7, Street: table.StreetFlop, Pot: 12.5}
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	mock.ExpectSet("tablesight:state:latest", data, 10*time.Second).SetVal("OK")
	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "tablesight:run:run-1",
		MaxLen: 1000,
		Approx: true,
		Values: []interface{}{"state", data, "tick", st.Tick},
	}).SetVal("1-0")

	if err := p.Publish(context.Background(), st); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet redis expectations: %v", err)
	}
}

func TestRedisPublishSetError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	p := NewRedis(rdb, "tablesight", "run-1", 10*time.Second)

	st := table.State{Tick: 1}
	data, _ := json.Marshal(st)
	mock.ExpectSet("tablesight:state:latest", data, 10*time.Second).SetErr(errors.New("connection refused"))

	if err := p.Publish(context.Background(), st); err == nil {
		t.Fatal("Publish() error = nil, want the backend error")
	}
}

func TestRedisPublishNilSafe(t *testing.T) {
	var p *Redis
	if err := p.Publish(context.Background(), table.State{}); err != nil {
		t.Errorf("nil publisher Publish() error = %v, want nil", err)
	}

	p = NewRedis(nil, "", "", 0)
	if err := p.Publish(context.Background(), table.State{Tick: 3}); err != nil {
		t.Errorf("clientless Publish() error = %v, want nil", err)
	}
}

func TestNewRedisDefaults(t *testing.T) {
	p := NewRedis(nil, "", "", 0)
	if p.namespace != "tablesight" {
		t.Errorf("namespace = %q, want tablesight", p.namespace)
	}
	if p.runID == "" {
		t.Error("runID is empty, want a generated id")
	}
	if p.ttl != 10*time.Second {
		t.Errorf("ttl = %v, want 10s", p.ttl)
	}
	if p.RunID() != p.runID {
		t.Errorf("RunID() = %q, want %q", p.RunID(), p.runID)
	}
}

func TestNopPublisher(t *testing.T) {
	if err := (Nop{}).Publish(context.Background(), table.State{Tick: 1}); err != nil {
		t.Errorf("Nop.Publish() error = %v, want nil", err)
	}
}

func TestLoopDrainsAndStops(t *testing.T) {
	ch := make(chan table.State, 2)
	ch <- table.State{Tick: 1}
	ch <- table.State{Tick: 2}
	close(ch)

	done := make(chan struct{})
	go func() {
		Loop(context.Background(), ch, Nop{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Loop did not return after the channel closed")
	}
}
