package utils

import "sync"

// ChannelHealth tracks which subscribed channels currently have a live
// connection.
type ChannelHealth struct {
	live  map[string]bool
	mutex sync.Mutex
}

func NewChannelHealth() *ChannelHealth {
	return &ChannelHealth{live: make(map[string]bool)}
}

// Track registers channel as subscribed but not yet live.
func (h *ChannelHealth) Track(channel string) {
	h.mutex.Lock()
	h.live[channel] = false
	h.mutex.Unlock()
}

func (h *ChannelHealth) Forget(channel string) {
	h.mutex.Lock()
	delete(h.live, channel)
	h.mutex.Unlock()
}

// Set records whether channel is live. Untracked channels are ignored.
func (h *ChannelHealth) Set(channel string, live bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.live[channel]; ok {
		h.live[channel] = live
	}
}

// AllLive is true when at least one channel is tracked and every tracked
// channel is live.
func (h *ChannelHealth) AllLive() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.live) == 0 {
		return false
	}
	for _, live := range h.live {
		if !live {
			return false
		}
	}
	return true
}
