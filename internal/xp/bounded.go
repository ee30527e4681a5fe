package xp

// BoundedSet is a membership set with a size-triggered full-clear
// eviction policy. Once the entry count passes the bound, the next
// Evict call drops everything, so long-lived entries can regain
// eligibility after a clear. That imprecision is accepted in exchange
// for a hard memory ceiling.
type BoundedSet struct {
	bound int
	items map[string]struct{}
}

func NewBoundedSet(bound int) *BoundedSet {
	return &BoundedSet{bound: bound, items: make(map[string]struct{})}
}

func (s *BoundedSet) Has(key string) bool {
	_, ok := s.items[key]
	return ok
}

func (s *BoundedSet) Add(key string) {
	s.items[key] = struct{}{}
}

func (s *BoundedSet) Len() int {
	return len(s.items)
}

// Evict clears the set when it exceeds its bound. Reports whether a
// clear happened.
func (s *BoundedSet) Evict() bool {
	if s.bound <= 0 || len(s.items) <= s.bound {
		return false
	}
	s.items = make(map[string]struct{})
	return true
}

// BoundedCounters is a per-key total accumulator with the same full-clear
// eviction policy as BoundedSet.
type BoundedCounters struct {
	bound  int
	totals map[string]int
}

func NewBoundedCounters(bound int) *BoundedCounters {
	return &BoundedCounters{bound: bound, totals: make(map[string]int)}
}

func (c *BoundedCounters) Get(key string) int {
	return c.totals[key]
}

func (c *BoundedCounters) Add(key string, delta int) int {
	c.totals[key] += delta
	return c.totals[key]
}

func (c *BoundedCounters) Len() int {
	return len(c.totals)
}

func (c *BoundedCounters) Evict() bool {
	if c.bound <= 0 || len(c.totals) <= c.bound {
		return false
	}
	c.totals = make(map[string]int)
	return true
}
