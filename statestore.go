package ghprofile

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// FlowPurpose says why an OAuth flow was started: to log a user in, or to
// link GitHub to an already-authenticated account.
type FlowPurpose string

const (
	PurposeLogin FlowPurpose = "login"
	PurposeLink  FlowPurpose = "link"
)

// FlowContext is what a handshake state token stands for. UserID is set only
// for link flows, where the initiating user is already known.
type FlowContext struct {
	Purpose FlowPurpose
	UserID  *int64
}

type stateEntry struct {
	flow     FlowContext
	storedAt time.Time
}

// StateStore maps opaque OAuth state tokens to the context of the flow that
// issued them. Entries are single-use and expire after a fixed TTL; both
// consumption and expiry are terminal. The store self-cleans on Consume, so
// no sweeper goroutine is needed.
type StateStore struct {
	mu     sync.Mutex
	states map[string]stateEntry
	ttl    time.Duration
	now    func() time.Time
}

// NewStateStore creates a store whose entries expire after ttl. A ttl of
// zero or less falls back to DefaultStateTTL.
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{
		states: make(map[string]stateEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Remember stores flow under state with the current time. An empty state is
// a no-op. The purpose defaults to login unless it is explicitly link.
func (s *StateStore) Remember(state string, flow FlowContext) {
	if state == "" {
		return
	}
	if flow.Purpose != PurposeLink {
		flow.Purpose = PurposeLogin
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = stateEntry{
		flow:     flow,
		storedAt: s.now().UTC(),
	}
}

// Consume looks up state and returns its flow context exactly once. The
// entry is deleted unconditionally before its freshness is checked, so a
// state token can never be delivered twice, valid or not. All expired
// entries are purged on the way in.
func (s *StateStore) Consume(state string) (FlowContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for token, entry := range s.states {
		if now.Sub(entry.storedAt) > s.ttl {
			delete(s.states, token)
		}
	}

	entry, ok := s.states[state]
	if !ok {
		return FlowContext{}, false
	}
	// Delete before validating. Check-then-delete would let two concurrent
	// consumers of the same token both succeed.
	delete(s.states, state)

	if now.Sub(entry.storedAt) > s.ttl {
		return FlowContext{}, false
	}
	return entry.flow, true
}

// Len returns the number of stored states, counting expired entries that
// have not yet been purged.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// GenerateState returns a random opaque handshake state token.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
