package server

import (
	"testing"

	"go.uber.org/zap"
)

func testSession() *Session {
	return newSession(nil, nil, nil, zap.NewNop())
}

func drainSeqs(t *testing.T, s *Session) []int {
	t.Helper()
	var seqs []int
	for {
		msg := s.queue.pop()
		if msg == nil {
			return seqs
		}
		seqs = append(seqs, msg.Payload["seq"].(int))
	}
}

func TestHubPublishExactTopic(t *testing.T) {
	h := NewHub(zap.NewNop())
	sub := testSession()
	other := testSession()
	h.Register(sub)
	h.Register(other)
	h.Subscribe(sub, "r1", "odom")
	h.Subscribe(other, "r1", "battery")

	h.Publish("r1", "odom", queuedMsg("r1", "odom", 1))

	if got := drainSeqs(t, sub); len(got) != 1 || got[0] != 1 {
		t.Fatalf("subscriber got %v", got)
	}
	if got := drainSeqs(t, other); len(got) != 0 {
		t.Fatalf("battery subscriber got %v", got)
	}
}

func TestHubWildcardReceivesEveryTopic(t *testing.T) {
	h := NewHub(zap.NewNop())
	sub := testSession()
	h.Register(sub)
	h.Subscribe(sub, "r1", "")

	h.Publish("r1", "odom", queuedMsg("r1", "odom", 1))
	h.Publish("r1", "battery", queuedMsg("r1", "battery", 2))
	h.Publish("r2", "odom", queuedMsg("r2", "odom", 3))

	got := drainSeqs(t, sub)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("wildcard subscriber got %v", got)
	}
}

func TestHubExactAndWildcardNoDoubleDelivery(t *testing.T) {
	h := NewHub(zap.NewNop())
	exact := testSession()
	wild := testSession()
	h.Register(exact)
	h.Register(wild)
	h.Subscribe(exact, "r1", "odom")
	h.Subscribe(wild, "r1", TopicAll)

	h.Publish("r1", "odom", queuedMsg("r1", "odom", 1))

	if got := drainSeqs(t, exact); len(got) != 1 {
		t.Fatalf("exact subscriber got %v", got)
	}
	if got := drainSeqs(t, wild); len(got) != 1 {
		t.Fatalf("wildcard subscriber got %v", got)
	}
}

func TestHubUnsubscribeSingleTopic(t *testing.T) {
	h := NewHub(zap.NewNop())
	sub := testSession()
	h.Register(sub)
	h.Subscribe(sub, "r1", "odom")
	h.Subscribe(sub, "r1", "battery")
	h.Unsubscribe(sub, "r1", "odom")

	h.Publish("r1", "odom", queuedMsg("r1", "odom", 1))
	h.Publish("r1", "battery", queuedMsg("r1", "battery", 2))

	got := drainSeqs(t, sub)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("got %v, want only battery", got)
	}
}

func TestHubUnsubscribeEmptyTopicRemovesRobot(t *testing.T) {
	h := NewHub(zap.NewNop())
	sub := testSession()
	h.Register(sub)
	h.Subscribe(sub, "r1", "odom")
	h.Subscribe(sub, "r1", "battery")
	h.Subscribe(sub, "r2", "odom")
	h.Unsubscribe(sub, "r1", "")

	h.Publish("r1", "odom", queuedMsg("r1", "odom", 1))
	h.Publish("r2", "odom", queuedMsg("r2", "odom", 2))

	got := drainSeqs(t, sub)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("got %v, want only r2", got)
	}
}

func TestHubUnregisterScrubsSubscriptions(t *testing.T) {
	h := NewHub(zap.NewNop())
	sub := testSession()
	h.Register(sub)
	h.Subscribe(sub, "r1", "odom")
	h.Unregister(sub)

	if got := h.Sessions(); got != 0 {
		t.Fatalf("got %d sessions after unregister", got)
	}
	h.Publish("r1", "odom", queuedMsg("r1", "odom", 1))
	if got := drainSeqs(t, sub); len(got) != 0 {
		t.Fatalf("unregistered session got %v", got)
	}
}

func TestHubBroadcastAllIgnoresSubscriptions(t *testing.T) {
	h := NewHub(zap.NewNop())
	a := testSession()
	b := testSession()
	h.Register(a)
	h.Register(b)
	h.Subscribe(a, "r1", "odom")

	h.BroadcastAll(queuedMsg("", "safety", 9))

	for _, s := range []*Session{a, b} {
		if got := drainSeqs(t, s); len(got) != 1 || got[0] != 9 {
			t.Fatalf("broadcast target got %v", got)
		}
	}
}
