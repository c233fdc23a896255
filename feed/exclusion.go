package feed

import "strings"

// MaxExclusionIds bounds both the ids accepted from a request and the ids
// retained across a browsing session, keeping query cost predictable.
const MaxExclusionIds = 200

// ExclusionSet accumulates post ids already delivered in the current
// browsing session. Each candidate strategy is an independent query, so
// without this cross-phase memory a phase transition or pull-to-refresh
// would resurface posts the user just saw. The set is client-held state:
// the server receives it with every request and never persists it.
//
// Insertion order is kept so that when the bound is hit the oldest ids are
// dropped first.
type ExclusionSet struct {
	ids   []string
	index map[string]struct{}
}

func NewExclusionSet() *ExclusionSet {
	return &ExclusionSet{index: map[string]struct{}{}}
}

// ParseExclusionList builds a set from the comma-joined excludeIds request
// parameter. The accepted count is capped at MaxExclusionIds, keeping the
// most recent (last listed) ids.
func ParseExclusionList(raw string) *ExclusionSet {
	set := NewExclusionSet()
	if raw == "" {
		return set
	}
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			set.Add(id)
		}
	}
	return set
}

// Add appends ids, deduplicating and evicting oldest-first beyond the
// bound.
func (s *ExclusionSet) Add(ids ...string) {
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.ids = append(s.ids, id)
		s.index[id] = struct{}{}
	}
	if len(s.ids) > MaxExclusionIds {
		evicted := s.ids[:len(s.ids)-MaxExclusionIds]
		for _, id := range evicted {
			delete(s.index, id)
		}
		s.ids = append([]string(nil), s.ids[len(s.ids)-MaxExclusionIds:]...)
	}
}

func (s *ExclusionSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Ids returns the ids to ship on the next outbound request, oldest first.
func (s *ExclusionSet) Ids() []string {
	return append([]string(nil), s.ids...)
}

func (s *ExclusionSet) Len() int {
	return len(s.ids)
}

// Reset clears the set, used on explicit refresh.
func (s *ExclusionSet) Reset() {
	s.ids = nil
	s.index = map[string]struct{}{}
}
