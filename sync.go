package parflate

import (
	"sync"
	"sync/atomic"
)

// unsetStopPos means "no stop position has been requested".
const unsetStopPos = int64(^uint64(0) >> 1)

// synchronizer sits between an adjacent upstream/downstream worker pair.
// It carries two things: the bit position at which the downstream worker
// synchronized (which bounds the upstream worker's decode loop), and the
// resolved 32 KiB context the upstream worker hands downstream when it
// finishes.
//
// stopAfter is an atomic with release/acquire ordering, polled by the
// upstream worker between blocks.  The context hand-off is serialized by a
// mutex and condition variable: a posted context must be taken before the
// next one can be posted.
type synchronizer struct {
	stopAfter atomic.Int64

	mu        sync.Mutex
	cond      *sync.Cond
	context   []byte
	stoppedAt int64
	failed    bool
}

func newSynchronizer() *synchronizer {
	s := new(synchronizer)
	s.cond = sync.NewCond(&s.mu)
	s.stopAfter.Store(unsetStopPos)
	return s
}

// setStop asks the upstream worker to stop at the first block boundary at
// or past the given bit position.
func (s *synchronizer) setStop(bitpos int64) {
	s.stopAfter.Store(bitpos)
}

// stopPos returns the current stop request.
func (s *synchronizer) stopPos() int64 {
	return s.stopAfter.Load()
}

// clearStop resets the stop request once the upstream worker has honored
// it.
func (s *synchronizer) clearStop() {
	s.stopAfter.Store(unsetStopPos)
}

// putContext posts the upstream worker's resolved 32 KiB context along with
// the bit position at which it stopped.  The context is copied, so the
// caller's buffer may be reused immediately.  If a context from a previous
// round has not been taken yet, putContext waits for it.
func (s *synchronizer) putContext(ctx []byte, stoppedAt int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.context != nil && !s.failed {
		s.cond.Wait()
	}
	if s.failed {
		return false
	}

	slab := takeContext()
	copy(slab, ctx)
	s.context = slab
	s.stoppedAt = stoppedAt
	s.cond.Broadcast()
	return true
}

// getContext blocks until the upstream worker has posted its context, then
// takes it.  It returns the context bytes, the bit position at which the
// upstream worker stopped, and false if the pipeline failed while waiting.
// The caller owns the returned slab and must release it with giveContext.
func (s *synchronizer) getContext() ([]byte, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.context == nil && !s.failed {
		s.cond.Wait()
	}
	if s.failed {
		return nil, 0, false
	}

	ctx := s.context
	s.context = nil
	s.cond.Broadcast()
	return ctx, s.stoppedAt, true
}

// fail wakes every worker blocked on this synchronizer so the pipeline can
// unwind after an error elsewhere.
func (s *synchronizer) fail() {
	s.mu.Lock()
	s.failed = true
	if s.context != nil {
		giveContext(s.context)
		s.context = nil
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}
