package broadcast

import (
	"log/slog"
	"sort"
	"sync"
)

// Subscriber is the send side of one registered connection.
type Subscriber interface {
	ID() string
	SendJSON(v any) error
}

// Broadcaster fans messages out to subscribers grouped by channel.
type Broadcaster struct {
	logger  *slog.Logger
	observe func(sent, failed int)

	mu       sync.RWMutex
	channels map[string]map[string]Subscriber
}

// New creates an empty broadcaster. observe, when non-nil, is invoked
// after every Broadcast with the delivered and failed send counts.
func New(logger *slog.Logger, observe func(sent, failed int)) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		logger:   logger,
		observe:  observe,
		channels: make(map[string]map[string]Subscriber),
	}
}

// Connect registers sub under channel, creating the channel on first use.
func (b *Broadcaster) Connect(channel string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.channels[channel]
	if !ok {
		set = make(map[string]Subscriber)
		b.channels[channel] = set
	}
	set[sub.ID()] = sub

	b.logger.Debug("subscriber connected",
		"channel", channel,
		"session", sub.ID(),
		"subscribers", len(set),
	)
}

// Disconnect removes sub from channel. Removing the last subscriber
// drops the channel entry entirely.
func (b *Broadcaster) Disconnect(channel string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(channel, sub)

	b.logger.Debug("subscriber disconnected", "channel", channel, "session", sub.ID())
}

// remove deletes sub from channel, but only while the registered
// instance is still this one. Callers hold b.mu.
func (b *Broadcaster) remove(channel string, sub Subscriber) {
	set, ok := b.channels[channel]
	if !ok {
		return
	}
	cur, ok := set[sub.ID()]
	if !ok || cur != sub {
		return
	}
	delete(set, sub.ID())
	if len(set) == 0 {
		delete(b.channels, channel)
	}
}

// Broadcast sends msg to every subscriber on channel. The fan-out runs
// over a snapshot of the set; subscribers whose send fails are removed
// from the live registry in one pass afterwards. Delivery is best
// effort: no retries, no cross-subscriber ordering.
func (b *Broadcaster) Broadcast(channel string, msg any) {
	b.mu.RLock()
	set, ok := b.channels[channel]
	if !ok {
		b.mu.RUnlock()
		return
	}
	snapshot := make([]Subscriber, 0, len(set))
	for _, sub := range set {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	var failed []Subscriber
	for _, sub := range snapshot {
		if err := sub.SendJSON(msg); err != nil {
			b.logger.Warn("broadcast send failed",
				"channel", channel,
				"session", sub.ID(),
				"err", err,
			)
			failed = append(failed, sub)
		}
	}

	if len(failed) > 0 {
		b.mu.Lock()
		for _, sub := range failed {
			b.remove(channel, sub)
		}
		b.mu.Unlock()
	}

	if b.observe != nil {
		b.observe(len(snapshot)-len(failed), len(failed))
	}
}

// Count returns the live subscriber count for one channel.
func (b *Broadcaster) Count(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}

// TotalCount returns the subscriber count across all channels.
func (b *Broadcaster) TotalCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, set := range b.channels {
		total += len(set)
	}
	return total
}

// Counts returns a per-channel snapshot of subscriber counts.
func (b *Broadcaster) Counts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[string]int, len(b.channels))
	for channel, set := range b.channels {
		counts[channel] = len(set)
	}
	return counts
}

// Channels returns the channels that currently have subscribers, sorted.
func (b *Broadcaster) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.channels))
	for channel := range b.channels {
		names = append(names, channel)
	}
	sort.Strings(names)
	return names
}
