package realtime

import (
	"testing"
	"time"

	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
)

func newHub(t *testing.T) *FeedHub {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return NewFeedHub(log)
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	hub := newHub(t)

	subscribed := hub.NewFeedClient("ana")
	other := hub.NewFeedClient("bruno")
	hub.Subscribe(subscribed, "gathering-1")
	hub.Subscribe(other, "gathering-2")

	hub.Broadcast(Message{Topic: "gathering-1", Title: "hello"})

	select {
	case msg := <-subscribed.Outbound:
		if msg.Title != "hello" {
			t.Fatalf("message: got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the message")
	}

	select {
	case msg := <-other.Outbound:
		t.Fatalf("unrelated subscriber received %+v", msg)
	default:
	}
}

func TestBroadcastAfterUnsubscribe(t *testing.T) {
	hub := newHub(t)

	client := hub.NewFeedClient("ana")
	hub.Subscribe(client, "gathering-1")
	hub.Unsubscribe(client, "gathering-1")

	hub.Broadcast(Message{Topic: "gathering-1", Title: "hello"})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("unsubscribed client received %+v", msg)
	default:
	}
}

func TestBroadcastNeverBlocksOnFullBuffer(t *testing.T) {
	hub := newHub(t)

	client := hub.NewFeedClient("ana")
	hub.Subscribe(client, "gathering-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(client.Outbound)+10; i++ {
			hub.Broadcast(Message{Topic: "gathering-1", Title: "flood"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	if got := len(client.Outbound); got != cap(client.Outbound) {
		t.Fatalf("buffered messages: want=%d got=%d", cap(client.Outbound), got)
	}
}

func TestSubscribeIgnoresBlankTopic(t *testing.T) {
	hub := newHub(t)

	client := hub.NewFeedClient("ana")
	hub.Subscribe(client, "   ")
	if len(client.Topics) != 0 {
		t.Fatalf("blank topic must be ignored, got %v", client.Topics)
	}
}
