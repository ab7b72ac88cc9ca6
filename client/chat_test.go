package client

import (
	"testing"
	"time"
)

func TestChatLogEvictsOldest(t *testing.T) {
	c := newChatLog(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		c.add("u", s)
	}
	h := c.history()
	if len(h) != 3 {
		t.Fatalf("len = %d, want 3", len(h))
	}
	// 旧在前：最早的两条已被淘汰
	if h[0].Text != "c" || h[2].Text != "e" {
		t.Fatalf("unexpected order: %v", h)
	}
}

func TestChatLogStampsReceiptTime(t *testing.T) {
	c := newChatLog(5)
	before := time.Now()
	c.add("alice", "hi")
	after := time.Now()
	h := c.history()
	if len(h) != 1 {
		t.Fatalf("len = %d, want 1", len(h))
	}
	if h[0].At.Before(before) || h[0].At.After(after) {
		t.Fatalf("receipt time %v outside [%v, %v]", h[0].At, before, after)
	}
	if h[0].From != "alice" {
		t.Fatalf("From = %q", h[0].From)
	}
}

func TestChatHistoryIsCopy(t *testing.T) {
	c := newChatLog(5)
	c.add("u", "x")
	h := c.history()
	h[0].Text = "mutated"
	if c.history()[0].Text != "x" {
		t.Fatal("caller mutation leaked into chat log")
	}
}
