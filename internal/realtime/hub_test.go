package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentrasec/sentra/internal/risk"
)

func TestSubscriptionMatchesRiskLevel(t *testing.T) {
	sub := Subscription{MinRiskLevel: risk.LevelHigh}

	cases := []struct {
		level risk.Level
		want  bool
	}{
		{risk.LevelLow, false},
		{risk.LevelMedium, false},
		{risk.LevelHigh, true},
		{risk.LevelCritical, true},
	}
	for _, tc := range cases {
		ev := &Event{Type: EventPrediction, RiskLevel: tc.level}
		if got := sub.matches(ev); got != tc.want {
			t.Errorf("min HIGH vs %s: matches = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestSubscriptionMatchesEventType(t *testing.T) {
	sub := Subscription{EventTypes: []EventType{EventBlocked}}

	if !sub.matches(&Event{Type: EventBlocked, RiskLevel: risk.LevelCritical}) {
		t.Error("blocked event should pass a blocked-only subscription")
	}
	if sub.matches(&Event{Type: EventPrediction, RiskLevel: risk.LevelCritical}) {
		t.Error("prediction event should not pass a blocked-only subscription")
	}
}

func TestSubscriptionEmptyMatchesEverything(t *testing.T) {
	var sub Subscription
	for _, typ := range []EventType{EventPrediction, EventDeviceAlert, EventBlocked} {
		for _, level := range []risk.Level{risk.LevelLow, risk.LevelCritical} {
			if !sub.matches(&Event{Type: typ, RiskLevel: level}) {
				t.Errorf("empty subscription rejected %s/%s", typ, level)
			}
		}
	}
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	defer hub.Shutdown(context.Background())

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// ServeWS registers the client before returning from the upgrade, but
	// give the handler goroutine a moment on loaded runners.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", hub.ClientCount())
	}

	want := &Event{Type: EventBlocked, RiskLevel: risk.LevelCritical, Timestamp: time.Now()}
	hub.Broadcast(want)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventBlocked || got.RiskLevel != risk.LevelCritical {
		t.Errorf("received %+v, want type %s level CRITICAL", got, EventBlocked)
	}
}

func TestBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	// Must not panic or block.
	hub.Broadcast(&Event{Type: EventPrediction, RiskLevel: risk.LevelLow})
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}
}
