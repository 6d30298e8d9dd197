package navigation

import "sync"

// promptSession tracks one continuous operation's two-phase prompting state.
type promptSession struct {
	kind        OperationKind
	target      string
	initialized bool
}

// promptSessions hands out the large context-establishing prompt exactly once
// per session and a minimal follow-up prompt thereafter, so continuous
// operation does not retransmit the full instructions on every cycle.
// Sessions are keyed by caller-chosen ids so logical operations never
// collide.
type promptSessions struct {
	mu       sync.Mutex
	sessions map[string]*promptSession
}

func newPromptSessions() *promptSessions {
	return &promptSessions{sessions: map[string]*promptSession{}}
}

// Start registers a session. Restarting an existing id resets it to the
// uninitialized phase.
func (s *promptSessions) Start(id string, kind OperationKind, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &promptSession{kind: kind, target: target}
}

// Prompt returns the session's next prompt: the full instruction prompt on
// first use, the short follow-up afterwards. Unknown ids report false and the
// caller falls back to a stateless prompt.
func (s *promptSessions) Prompt(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return "", false
	}

	if !session.initialized {
		session.initialized = true
		return initialPromptFor(session.kind), true
	}
	return followUpPromptFor(session.kind), true
}

// Target returns the optional target string the session was started with.
func (s *promptSessions) Target(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return "", false
	}
	return session.target, true
}

func (s *promptSessions) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
