package broadcastsvc

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type nopLogger struct {
	std *log.Logger
}

func (l nopLogger) Enable(bool)                        {}
func (l nopLogger) Debug(string, ...interface{})       {}
func (l nopLogger) Info(string, ...interface{})        {}
func (l nopLogger) Warn(string, ...interface{})        {}
func (l nopLogger) Error(msg string, _ ...interface{}) { l.std.Println(msg) }
func (l nopLogger) Fatal(msg string, _ ...interface{}) { l.std.Fatal(msg) }

func TestHubDeliversToSubscribedTopic(t *testing.T) {
	hub := NewHub(nopLogger{std: log.New(os.Stdout, "", 0)})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		hub.Subscribe(conn, "leaderboard")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// wait for the subscription to register before publishing
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.topics["leaderboard"])
		hub.mu.RUnlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish("leaderboard", map[string]interface{}{"user_id": "u1", "total_xp": 30})
	hub.Publish("other-topic", map[string]interface{}{"ignored": true})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading event failed: %v", err)
	}

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshalling event failed: %v", err)
	}
	if event.Topic != "leaderboard" {
		t.Errorf("topic = %v; want leaderboard", event.Topic)
	}
	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Payload)
	}
	if payload["user_id"] != "u1" {
		t.Errorf("user_id = %v; want u1", payload["user_id"])
	}
}

func TestRecordingBroadcaster(t *testing.T) {
	rec := NewRecordingBroadcaster()
	rec.Publish("leaderboard", 1)
	rec.Publish("subscriptions", 2)
	rec.Publish("leaderboard", 3)

	if got := len(rec.TopicEvents("leaderboard")); got != 2 {
		t.Errorf("leaderboard events = %d; want 2", got)
	}
	if got := len(rec.TopicEvents("subscriptions")); got != 1 {
		t.Errorf("subscriptions events = %d; want 1", got)
	}
}
