package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(4)
	defer unsubscribe()

	bus.Publish(Event{Endpoint: "dev-1", State: StateDownloading})

	select {
	case e := <-ch:
		if e.Endpoint != "dev-1" || e.State != StateDownloading {
			t.Errorf("received %+v", e)
		}
		if e.Time.IsZero() {
			t.Error("Publish should stamp Time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	_, unsubscribe := bus.Subscribe(1)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(Event{State: StateQueued})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if got := bus.Dropped(); got != 9 {
		t.Errorf("Dropped() = %d, want 9", got)
	}
}

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	a, unsubA := bus.Subscribe(2)
	b, unsubB := bus.Subscribe(2)
	defer unsubA()
	defer unsubB()

	bus.Publish(Event{Endpoint: "dev-2"})

	for i, ch := range []<-chan Event{a, b} {
		select {
		case e := <-ch:
			if e.Endpoint != "dev-2" {
				t.Errorf("subscriber %d received %+v", i, e)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(1)

	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if n := bus.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}

	bus.Publish(Event{})
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(1)

	bus.Close()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}

	unsubscribe()
	bus.Publish(Event{})
	bus.Close()

	late, _ := bus.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("subscribing to a closed bus should return a closed channel")
	}
}

func TestBus_Nil(t *testing.T) {
	var bus *Bus
	bus.Publish(Event{})
	bus.Close()
}

func TestEvent_Terminal(t *testing.T) {
	if (Event{State: StateDownloading}).Terminal() {
		t.Error("downloading is not terminal")
	}
	if !(Event{State: StateFinished}).Terminal() {
		t.Error("finished is terminal")
	}
}
