package broadcastsvc

import (
	"sync"

	"github.com/eduhive/backend/core"
)

// RecordingBroadcaster captures published events for assertions in tests.
type RecordingBroadcaster struct {
	mu     sync.Mutex
	Events []Event
}

var _ core.Broadcaster = (*RecordingBroadcaster)(nil)

func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{}
}

func (b *RecordingBroadcaster) Publish(topic string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Events = append(b.Events, Event{Topic: topic, Payload: payload})
}

// TopicEvents returns the captured events for a topic.
func (b *RecordingBroadcaster) TopicEvents(topic string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var events []Event
	for _, e := range b.Events {
		if e.Topic == topic {
			events = append(events, e)
		}
	}
	return events
}
