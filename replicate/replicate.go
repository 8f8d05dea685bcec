/*
Package replicate implements optional last-writer-wins document sync.

PURPOSE:
  Two studio instances can share one snapshot document through a remote
  document slot (the original tool used a single Firestore document). The
  model is deliberately crude: the most recent write replaces the whole
  document; there is no merging. What the core demands from this layer is
  ECHO SUPPRESSION - an instance must never re-propagate the exact
  document it just received, or two participants ping-pong the same bytes
  forever.

MECHANISM:
  Every document is fingerprinted (SHA-256 of its canonical JSON; the
  encoder sorts map keys, so encoding is deterministic for a given
  value). Decode->commit->encode is NOT byte-stable though: cloning on
  commit turns nil collections into empty ones, so the re-encoded state
  differs from the wire bytes that produced it. The replicator therefore
  tracks three fingerprints: the document it last pushed, the wire
  document it last applied, and the committed state that apply produced.

  - Outbound: a committed state tagged OriginRemote is never pushed, and
    neither is a local state whose fingerprint equals the state the last
    remote apply committed.
  - Inbound: a fetched document matching any of the three tracked
    fingerprints is dropped without dispatching.

FIRE-AND-FORGET:
  Pushes run on their own goroutine with a timeout; dispatch never waits
  for the network. Failed pushes are logged and retried implicitly by the
  next committed state.

SEE ALSO:
  - core/store.go: Origin tagging on committed states
  - api: The /api/sync/document peer endpoint
*/
package replicate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/bigtop/studio-engine/core"
)

// ErrNoDocument is returned by a Transport when the remote slot is empty.
var ErrNoDocument = errors.New("no remote document")

// Transport moves whole snapshot documents to and from the remote slot.
type Transport interface {
	Push(ctx context.Context, document []byte) error
	Fetch(ctx context.Context) ([]byte, error)
}

// =============================================================================
// REPLICATOR
// =============================================================================

const pushTimeout = 10 * time.Second

// Replicator keeps a core store and a remote document slot converged.
type Replicator struct {
	store     *core.Store
	transport Transport
	interval  time.Duration

	mu           sync.Mutex
	lastPushed   string
	appliedWire  string // raw bytes of the last remote document applied
	appliedState string // the committed state that apply produced from it
}

// New creates a replicator. interval is the remote poll period; zero
// disables polling (push-only participant).
func New(store *core.Store, transport Transport, interval time.Duration) *Replicator {
	return &Replicator{store: store, transport: transport, interval: interval}
}

// Notify is the core.Listener for committed states.
func (r *Replicator) Notify(st core.State, origin core.Origin) {
	doc, err := core.EncodeState(st)
	if err != nil {
		log.Printf("replicate: encode: %v", err)
		return
	}
	fp := fingerprint(doc)

	r.mu.Lock()
	if origin == core.OriginRemote {
		// The committed form of the applied document. Recorded alongside
		// appliedWire, never in place of it: the wire bytes are what the
		// next poll fetches back.
		r.appliedState = fp
		r.mu.Unlock()
		return
	}
	if fp == r.appliedState {
		// Local dispatch reproduced the remote document exactly; pushing
		// it back would start a loop.
		r.mu.Unlock()
		return
	}
	r.lastPushed = fp
	r.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := r.transport.Push(ctx, doc); err != nil {
			log.Printf("replicate: push: %v", err)
		}
	}()
}

// Pull fetches the remote document once and applies it if it is news.
func (r *Replicator) Pull(ctx context.Context) error {
	doc, err := r.transport.Fetch(ctx)
	if errors.Is(err, ErrNoDocument) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.apply(doc)
}

func (r *Replicator) apply(doc []byte) error {
	fp := fingerprint(doc)

	r.mu.Lock()
	if fp == r.lastPushed || fp == r.appliedWire || fp == r.appliedState {
		r.mu.Unlock()
		return nil
	}
	r.appliedWire = fp
	r.mu.Unlock()

	st, err := core.DecodeState(doc)
	if err != nil {
		return fmt.Errorf("remote document rejected: %w", err)
	}
	_, err = r.store.DispatchRemote(core.ReplaceState{State: st})
	return err
}

// Run polls the remote slot until the context is cancelled. No-op when the
// poll interval is zero.
func (r *Replicator) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Pull(ctx); err != nil {
				log.Printf("replicate: pull: %v", err)
			}
		}
	}
}

func fingerprint(doc []byte) string {
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// HTTP TRANSPORT - peer instance's /api/sync/document
// =============================================================================

// HTTPTransport syncs against another studio-engine instance.
type HTTPTransport struct {
	URL    string
	Client *http.Client
}

func NewHTTPTransport(url string) *HTTPTransport {
	return &HTTPTransport{URL: url, Client: &http.Client{Timeout: pushTimeout}}
}

func (t *HTTPTransport) Push(ctx context.Context, document []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.URL, bytes.NewReader(document))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push rejected: %s", resp.Status)
	}
	return nil
}

func (t *HTTPTransport) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoDocument
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch rejected: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// =============================================================================
// MEMORY TRANSPORT - shared document slot for tests
// =============================================================================

// MemoryHub is an in-process remote document slot two replicators can share.
type MemoryHub struct {
	mu  sync.RWMutex
	doc []byte

	pushes int
}

func NewMemoryHub() *MemoryHub { return &MemoryHub{} }

func (h *MemoryHub) Push(_ context.Context, document []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc = append([]byte(nil), document...)
	h.pushes++
	return nil
}

func (h *MemoryHub) Fetch(_ context.Context) ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.doc == nil {
		return nil, ErrNoDocument
	}
	return append([]byte(nil), h.doc...), nil
}

// PushCount reports how many pushes landed; tests assert echo suppression.
func (h *MemoryHub) PushCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pushes
}
