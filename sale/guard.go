package sale

import (
	"net/http"
	"sync"
)

// reentrancyGuard rejects a guarded operation re-entered within the same
// transaction, e.g. through a token chaincode calling back into this
// contract during an outbound transfer. Independent transactions carry
// distinct IDs and are unaffected. A nested call is failed immediately; it
// is never blocked or queued.
type reentrancyGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func (g *reentrancyGuard) enter(txID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight == nil {
		g.inFlight = make(map[string]struct{})
	}

	if _, held := g.inFlight[txID]; held {
		return NewCustomError(http.StatusLocked, "guarded operation already in flight", ErrReentrantCall)
	}

	g.inFlight[txID] = struct{}{}
	return nil
}

func (g *reentrancyGuard) exit(txID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, txID)
}
