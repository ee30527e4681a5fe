// Package xp collects raw activity events into capped, per-cycle point
// deltas. Nothing here touches storage; the bot drains the aggregator on
// a fixed interval and hands the pending map to the ledger.
package xp

import (
	"math/rand"
	"sync"
	"time"

	"hearthwarden/internal/config"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type dailyEntry struct {
	date string
	xp   int
}

type Aggregator struct {
	mu    sync.Mutex
	cfg   config.XPConfig
	clock Clock
	roll  func(min, max int) int

	pending      map[string]int
	gainedMsg    map[string]struct{}
	msgReactions *BoundedCounters
	reactedPairs *BoundedSet
	daily        map[string]dailyEntry
}

func New(cfg config.XPConfig) *Aggregator {
	return &Aggregator{
		cfg:   cfg,
		clock: realClock{},
		roll: func(min, max int) int {
			if max <= min {
				return min
			}
			return min + rand.Intn(max-min+1)
		},
		pending:      make(map[string]int),
		gainedMsg:    make(map[string]struct{}),
		msgReactions: NewBoundedCounters(cfg.MessageDedupBound),
		reactedPairs: NewBoundedSet(cfg.PairDedupBound),
		daily:        make(map[string]dailyEntry),
	}
}

func (a *Aggregator) WithClock(clock Clock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock = clock
}

// WithRoll replaces the message XP roll, for tests.
func (a *Aggregator) WithRoll(roll func(min, max int) int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roll = roll
}

// RecordMessage awards message XP at most once per user per flush cycle.
// Returns the raw amount credited to the pending map, 0 when skipped.
func (a *Aggregator) RecordMessage(userID string, contentLength int) int {
	if contentLength < a.cfg.MessageMinLength {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, gained := a.gainedMsg[userID]; gained {
		return 0
	}
	a.gainedMsg[userID] = struct{}{}
	amount := a.roll(a.cfg.MessageMin, a.cfg.MessageMax)
	a.pending[userID] += amount
	return amount
}

// RecordReaction awards reaction XP to the reactor subject to three
// caps: once per (user, message) pair, a per-message cumulative total,
// and a per-user daily ceiling. All trackers advance together with the
// award.
func (a *Aggregator) RecordReaction(userID, messageID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	pair := userID + "|" + messageID
	if a.reactedPairs.Has(pair) {
		return 0
	}

	today := a.clock.Now().Format("2006-01-02")
	userDaily := a.daily[userID]
	if userDaily.date != today {
		userDaily = dailyEntry{date: today}
	}
	if userDaily.xp >= a.cfg.ReactionDailyCap {
		return 0
	}
	if a.msgReactions.Get(messageID) >= a.cfg.ReactionMsgCap {
		return 0
	}

	amount := a.cfg.ReactionXP
	a.reactedPairs.Add(pair)
	a.msgReactions.Add(messageID, amount)
	userDaily.xp += amount
	a.daily[userID] = userDaily
	a.pending[userID] += amount
	return amount
}

// VoiceTick awards voice XP for one cycle. Each value is the set of
// eligible (human, unmuted, undeafened) member IDs in one channel; a
// channel pays out only when enough of them are present to suggest an
// actual conversation.
func (a *Aggregator) VoiceTick(channels map[string][]string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := 0
	for _, members := range channels {
		if len(members) < a.cfg.VoiceMinMembers {
			continue
		}
		for _, userID := range members {
			a.pending[userID] += a.cfg.VoiceXPPerCycle
			total += a.cfg.VoiceXPPerCycle
		}
	}
	return total
}

// Drain ends the current cycle: the message dedup set resets, oversized
// reaction caches are evicted, stale daily entries pruned, and the
// pending map is handed back and cleared.
func (a *Aggregator) Drain() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.gainedMsg = make(map[string]struct{})
	a.msgReactions.Evict()
	a.reactedPairs.Evict()

	today := a.clock.Now().Format("2006-01-02")
	for userID, entry := range a.daily {
		if entry.date != today {
			delete(a.daily, userID)
		}
	}

	if len(a.pending) == 0 {
		return nil
	}
	pending := a.pending
	a.pending = make(map[string]int)
	return pending
}

// Requeue returns failed flush deltas to the pending map for the next
// cycle.
func (a *Aggregator) Requeue(failed map[string]int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for userID, amount := range failed {
		a.pending[userID] += amount
	}
}

// Reset drops all pending deltas, used when the XP system is stopped.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = make(map[string]int)
}

// PendingStats reports how many users have unflushed deltas and their
// sum.
func (a *Aggregator) PendingStats() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, amount := range a.pending {
		total += amount
	}
	return len(a.pending), total
}
