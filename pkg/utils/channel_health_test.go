package utils

import "testing"

func TestChannelHealthRequiresEveryChannel(t *testing.T) {
	h := NewChannelHealth()
	if h.AllLive() {
		t.Fatal("nothing tracked should not count as live")
	}

	h.Track("notifications")
	h.Track("live-bids")
	h.Set("live-bids", true)
	if h.AllLive() {
		t.Error("one channel down must not count as live")
	}

	h.Set("notifications", true)
	if !h.AllLive() {
		t.Error("both channels up should count as live")
	}

	h.Set("notifications", false)
	if h.AllLive() {
		t.Error("dropped channel must clear live")
	}

	h.Forget("notifications")
	if !h.AllLive() {
		t.Error("forgotten channel should no longer count")
	}

	h.Set("unknown", false)
	if !h.AllLive() {
		t.Error("untracked channel changed the result")
	}
}
