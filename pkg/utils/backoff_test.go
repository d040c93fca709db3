package utils

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBackoffNext(t *testing.T) {
	b := NewBackoff(time.Second, 5*time.Second)

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %s, want %s", i, got, w)
		}
	}

	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("Next() after Reset = %s, want 1s", got)
	}
}

func TestBackoffWaitCancelled(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if b.Wait(ctx) {
		t.Error("Wait returned true on a cancelled context")
	}
}

func TestBackoffWaitElapses(t *testing.T) {
	b := NewBackoff(time.Millisecond, time.Millisecond)
	if !b.Wait(context.Background()) {
		t.Error("Wait returned false without cancellation")
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID("conn")
	b := GenerateID("conn")

	if !strings.HasPrefix(a, "conn-") {
		t.Errorf("GenerateID = %q, want conn- prefix", a)
	}
	if a == b {
		t.Error("GenerateID returned duplicate ids")
	}
}
