package state

// sequencer fences one store's asynchronous results. Every action takes a ticket when issued;
// results that replace store contents only apply when no newer replacing result has. A reset
// retires every ticket issued so far, so nothing started before it applies afterwards.
// Callers hold the owning store's mutex.
type sequencer struct {
	next     uint64
	applied  uint64
	epoch    uint64
	inflight int
}

func (s *sequencer) begin() uint64 {
	s.next++
	s.inflight++
	return s.next
}

// current reports whether ticket t may still change the store.
func (s *sequencer) current(t uint64) bool {
	return t > s.epoch && t >= s.applied
}

// replace ends ticket t and reports whether its result may overwrite the store.
func (s *sequencer) replace(t uint64) bool {
	s.inflight--
	if !s.current(t) {
		return false
	}
	s.applied = t
	return true
}

// merge ends ticket t for an action whose result is merged rather than replacing. It reports
// false when a reset happened after t was issued.
func (s *sequencer) merge(t uint64) bool {
	s.inflight--
	return t > s.epoch
}

// reset retires every outstanding ticket.
func (s *sequencer) reset() {
	s.epoch = s.next
	s.applied = s.next
}

func (s *sequencer) busy() bool {
	return s.inflight > 0
}
