package p2p

import (
	"bytes"
	"context"
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/internal/wire"
)

// SenderRateLimit / SenderRateBurst bound how many envelopes per second a
// single sender_id may push through the transport before being dropped,
// protecting a node from a flooding or misbehaving peer (§4.4, §4.5).
const (
	SenderRateLimit = 50
	SenderRateBurst = 100
)

// senderLimiters tracks one token bucket per sender_id. Buckets are never
// removed: the map gains one entry for each distinct sender_id seen.
type senderLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newSenderLimiters() *senderLimiters {
	return &senderLimiters{limiters: make(map[string]*rate.Limiter)}
}

func (s *senderLimiters) allow(senderID string) bool {
	s.mu.Lock()
	l, ok := s.limiters[senderID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(SenderRateLimit), SenderRateBurst)
		s.limiters[senderID] = l
	}
	s.mu.Unlock()
	return l.Allow()
}

// EndpointPath is the single HTTP endpoint every peer exposes (§4.4, §6).
const EndpointPath = "/p2p/message"

// Handler processes a decoded envelope received on EndpointPath.
type Handler func(ctx context.Context, env wire.Envelope) error

// Server hosts the HTTP transport with gorilla/mux, dispatching decoded
// envelopes by MessageType.
type Server struct {
	router   *mux.Router
	handlers map[wire.MessageType]Handler
	limits   *senderLimiters
}

// NewServer constructs a Server with the single /p2p/message route wired.
func NewServer() *Server {
	s := &Server{
		router:   mux.NewRouter(),
		handlers: make(map[wire.MessageType]Handler),
		limits:   newSenderLimiters(),
	}
	s.router.HandleFunc(EndpointPath, s.serveMessage).Methods(http.MethodPost)
	return s
}

// Handle registers the handler invoked for a given message type.
func (s *Server) Handle(mt wire.MessageType, h Handler) {
	s.handlers[mt] = h
}

// Router exposes the underlying mux.Router for embedding alongside the
// read-only REST shim (§6).
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) serveMessage(w http.ResponseWriter, r *http.Request) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r.Body); err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	var env wire.Envelope
	if err := wire.Unmarshal(buf.Bytes(), &env); err != nil {
		http.Error(w, "decode error", http.StatusBadRequest)
		return
	}

	if !s.limits.allow(env.SenderID) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	h, ok := s.handlers[env.MessageType]
	if !ok {
		http.Error(w, "unknown message type", http.StatusBadRequest)
		return
	}

	if err := h(r.Context(), env); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Client sends envelopes to peers over POST /p2p/message.
type Client struct {
	httpClient *http.Client
}

// NewClient constructs a Client with a per-call deadline applied by the
// caller (§5: "every outbound HTTP call carries a deadline").
func NewClient() *Client {
	return &Client{httpClient: &http.Client{}}
}

// Send POSTs env to address's /p2p/message endpoint, honoring ctx's deadline.
func (c *Client) Send(ctx context.Context, address string, env wire.Envelope) error {
	body, err := wire.Marshal(env)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+address+EndpointPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/cbor")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{StatusCode: resp.StatusCode}
	}
	return nil
}

// TransportError wraps a non-200 HTTP response from a peer.
type TransportError struct {
	StatusCode int
}

func (e *TransportError) Error() string {
	return http.StatusText(e.StatusCode)
}

// Sign computes the envelope signature over its canonical CBOR signing
// bytes using Ed25519 (the per-message authentication layer; certificate
// verification of the sender happens at the consumer per §4.2).
func Sign(env wire.Envelope, signFn func([]byte) []byte) (wire.Envelope, error) {
	b, err := wire.SigningBytes(env)
	if err != nil {
		return env, err
	}
	env.Signature = signFn(b)
	return env, nil
}

// AddressSalt is generated once per process at startup and used to hash
// peer addresses before they appear in logs or forwarded gossip, per the
// §4.4 privacy requirement.
var AddressSalt = generateSalt()

func generateSalt() [16]byte {
	var s [16]byte
	_, _ = rand.Read(s[:])
	return s
}

// HashAddress salts and hashes a peer address for safe inclusion in logs
// and in gossip messages forwarded beyond the direct neighbor.
func HashAddress(address string) [32]byte {
	return qcrypto.SHA3_256(AddressSalt[:], []byte(address))
}

// AdaptiveTrackedTimeout mirrors the certificate-rotation timeout ladder
// for general tracked broadcasts (§4.4): 3s/5s/10s by peer count.
func AdaptiveTrackedTimeout(peerCount int) time.Duration {
	switch {
	case peerCount <= 10:
		return 3 * time.Second
	case peerCount <= 100:
		return 5 * time.Second
	default:
		return 10 * time.Second
	}
}

// ByzantineThreshold returns ceil(peerCount * 2/3), the ack count a
// tracked broadcast must reach.
func ByzantineThreshold(peerCount int) int {
	need := (peerCount*2 + 2) / 3
	if need < 1 && peerCount > 0 {
		need = 1
	}
	return need
}
