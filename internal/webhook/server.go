// Package webhook is the inbound HTTP surface: the Meta verification
// handshake, the message callback and the static /exports/ directory.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/log"
)

// MessageHandler processes one inbound message end to end.
type MessageHandler interface {
	HandleMessage(ctx context.Context, sender, text, attachmentRef string) error
}

// ReceiptSaver stores an inbound media attachment and returns its reference.
type ReceiptSaver interface {
	SaveReceipt(mediaID string) (string, error)
}

type Server struct {
	http.Server
	handler     MessageHandler
	receipts    ReceiptSaver
	verifyToken string
	debounce    *senderDebounce
	logger      *log.Logger
}

// senderDebounce drops bursts from one phone number: one message per window,
// mirrored after the upstream bot's 1200ms guard against double taps.
// Senders idle longer than idleAfter are evicted so the map stays bounded by
// recently active numbers.
type senderDebounce struct {
	mu        sync.Mutex
	senders   map[string]*senderState
	window    time.Duration
	idleAfter time.Duration
}

type senderState struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newSenderDebounce(window, idleAfter time.Duration) *senderDebounce {
	return &senderDebounce{
		senders:   make(map[string]*senderState),
		window:    window,
		idleAfter: idleAfter,
	}
}

func (d *senderDebounce) allow(sender string) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for other, st := range d.senders {
		if now.Sub(st.lastSeen) > d.idleAfter {
			delete(d.senders, other)
		}
	}

	st, ok := d.senders[sender]
	if !ok {
		st = &senderState{lim: rate.NewLimiter(rate.Every(d.window), 1)}
		d.senders[sender] = st
	}
	st.lastSeen = now
	return st.lim.Allow()
}

// NewServer wires the webhook routes. exportDir is served under /exports/
// so report links sent in chat resolve.
func NewServer(addr string, handler MessageHandler, receipts ReceiptSaver, verifyToken, exportDir string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler:     handler,
		receipts:    receipts,
		verifyToken: verifyToken,
		debounce:    newSenderDebounce(1200*time.Millisecond, 10*time.Minute),
		logger:      logger.WithComponent(log.ComponentWebhook),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/webhook", s.withRequestLog(s.handleWebhook))
	mux.Handle("/exports/", http.StripPrefix("/exports/", http.FileServer(http.Dir(exportDir))))

	return s
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleVerify(w, r)
	case http.MethodPost:
		s.handleEvent(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleVerify answers Meta's subscription handshake: echo hub.challenge
// when the token matches, 403 otherwise.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == s.verifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	s.logger.WarnContext(r.Context(), "Webhook verification rejected",
		"mode", q.Get("hub.mode"))
	w.WriteHeader(http.StatusForbidden)
}

// handleEvent always answers 200: Meta retries non-2xx responses, and a
// retry storm of the same message is worse than a dropped reply.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.logger.WarnContext(ctx, "Undecodable webhook payload", log.FieldError, err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}

	msg, ok := event.FirstMessage()
	if !ok {
		// Status callback, no inbound message.
		w.WriteHeader(http.StatusOK)
		return
	}

	if !s.debounce.allow(msg.From) {
		s.logger.InfoContext(ctx, "Message debounced", log.FieldSender, msg.From)
		w.WriteHeader(http.StatusOK)
		return
	}

	var text, attachmentRef string
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			text = msg.Text.Body
		}
	case "image":
		if msg.Image != nil {
			text = msg.Image.Caption
			ref, err := s.receipts.SaveReceipt(msg.Image.ID)
			if err != nil {
				s.logger.ErrorContext(ctx, "Receipt save failed", log.FieldError, err.Error())
			} else {
				attachmentRef = ref
			}
		}
	default:
		s.logger.InfoContext(ctx, "Unsupported message type",
			log.FieldSender, msg.From, "type", msg.Type)
		if err := s.handler.HandleMessage(ctx, msg.From, "", ""); err != nil {
			s.logger.ErrorContext(ctx, "Handler failed", log.FieldError, err.Error())
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.handler.HandleMessage(ctx, msg.From, text, attachmentRef); err != nil {
		s.logger.ErrorContext(ctx, "Handler failed",
			log.FieldSender, msg.From,
			log.FieldError, err.Error())
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(r.Context(), "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
