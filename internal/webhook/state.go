package webhook

import "sync"

// Phase of the webhook endpoint. The channel platform verifies the endpoint
// with a GET handshake before delivering events; the phase records whether
// that handshake has happened this process lifetime. Event POSTs are
// accepted in both phases since the platform keeps delivering across our
// restarts.
type Phase int

const (
	PhaseAwaitingVerification Phase = iota
	PhaseAccepting
)

func (p Phase) String() string {
	if p == PhaseAccepting {
		return "accepting"
	}
	return "awaiting_verification"
}

// Handshake is the phase cell shared by the GET and POST handlers.
type Handshake struct {
	mu    sync.Mutex
	phase Phase
}

func (h *Handshake) Phase() Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase
}

func (h *Handshake) markVerified() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = PhaseAccepting
}
