package tracker

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestBus_FIFO verifies in-order delivery under capacity.
func TestBus_FIFO(t *testing.T) {
	b := NewBus(8)
	b.Publish(Message{Type: MessageTypeStatus, Project: "/a"})
	b.Publish(Message{Type: MessageTypeProgress, Project: "/a"})
	b.Publish(Message{Type: MessageTypeProjectUpdated, Project: "/b"})

	want := []MessageType{MessageTypeStatus, MessageTypeProgress, MessageTypeProjectUpdated}
	for i, w := range want {
		msg, ok := b.TryNext()
		if !ok {
			t.Fatalf("message %d missing", i)
		}
		if msg.Type != w {
			t.Errorf("message %d type = %s, want %s", i, msg.Type, w)
		}
	}
	if _, ok := b.TryNext(); ok {
		t.Error("expected empty bus")
	}
}

// TestBus_OverflowDropsOldestForSameProject verifies that on overflow the
// oldest pending message for the publishing project goes first.
func TestBus_OverflowDropsOldestForSameProject(t *testing.T) {
	b := NewBus(2)
	b.Publish(Message{Type: MessageTypeStatus, Project: "/a"})
	b.Publish(Message{Type: MessageTypeStatus, Project: "/b"})
	b.Publish(Message{Type: MessageTypeProjectUpdated, Project: "/a"})

	if b.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", b.Pending())
	}
	first, _ := b.TryNext()
	second, _ := b.TryNext()
	if first.Project != "/b" {
		t.Errorf("first message project = %s, want /b (old /a dropped)", first.Project)
	}
	if second.Project != "/a" || second.Type != MessageTypeProjectUpdated {
		t.Errorf("second message = %s/%s, want /a project_updated", second.Project, second.Type)
	}
}

// TestBus_OverflowFallsBackToGlobalOldest verifies the drop policy when no
// same-project message is pending.
func TestBus_OverflowFallsBackToGlobalOldest(t *testing.T) {
	b := NewBus(2)
	b.Publish(Message{Project: "/a"})
	b.Publish(Message{Project: "/b"})
	b.Publish(Message{Project: "/c"})

	first, _ := b.TryNext()
	second, _ := b.TryNext()
	if first.Project != "/b" || second.Project != "/c" {
		t.Errorf("got %s, %s; want /b, /c", first.Project, second.Project)
	}
}

// TestBus_NextBlocksUntilPublish verifies the consumer wakes on publish.
func TestBus_NextBlocksUntilPublish(t *testing.T) {
	b := NewBus(4)

	got := make(chan Message, 1)
	go func() {
		msg, err := b.Next(context.Background())
		if err != nil {
			t.Errorf("Next() failed: %v", err)
		}
		got <- msg
	}()

	time.Sleep(20 * time.Millisecond)
	b.Publish(Message{Project: "/a"})

	select {
	case msg := <-got:
		if msg.Project != "/a" {
			t.Errorf("project = %s, want /a", msg.Project)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next() did not wake on publish")
	}
}

// TestBus_NextContextCancel verifies cancellation unblocks the consumer.
func TestBus_NextContextCancel(t *testing.T) {
	b := NewBus(4)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := b.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

// TestBus_CloseDrainsThenFails verifies pending messages survive Close and
// Next reports closure afterwards.
func TestBus_CloseDrainsThenFails(t *testing.T) {
	b := NewBus(4)
	b.Publish(Message{Project: "/a"})
	b.Close()

	msg, err := b.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() on closed bus with pending message failed: %v", err)
	}
	if msg.Project != "/a" {
		t.Errorf("project = %s, want /a", msg.Project)
	}
	if _, err := b.Next(context.Background()); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}

	b.Publish(Message{Project: "/b"})
	if b.Pending() != 0 {
		t.Error("publish after close should be a no-op")
	}
}

// TestBus_TimestampAssigned verifies publish stamps messages.
func TestBus_TimestampAssigned(t *testing.T) {
	b := NewBus(4)
	b.Publish(Message{Project: "/a"})
	msg, _ := b.TryNext()
	if msg.Timestamp.IsZero() {
		t.Error("expected publish to assign a timestamp")
	}
}
