package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/cuefollow/internal/config"
	"github.com/MrWong99/cuefollow/internal/tracker"
	"github.com/MrWong99/cuefollow/internal/tracker/similarity"
)

const (
	// outboundBuffer is the per-connection match-event channel capacity.
	// When a client reads too slowly to keep up, events are dropped with a
	// warning rather than blocking the drain loop.
	outboundBuffer = 32

	writeTimeout = 5 * time.Second
)

// clientMessage is one frame from the speech-source collaborator.
type clientMessage struct {
	// Type is "script", "batch", "precision", or "reset".
	Type string `json:"type"`

	// Words carries the script words (type "script") or the spoken-word
	// batch (type "batch").
	Words []string `json:"words,omitempty"`

	// Text is an alternative to Words for type "script": the full script
	// text, split on whitespace server-side.
	Text string `json:"text,omitempty"`

	// Precision is the new precision value for type "precision".
	Precision int `json:"precision,omitempty"`
}

// serverMessage is one frame to the display collaborator.
type serverMessage struct {
	// Type is "ready", "match", or "error".
	Type string `json:"type"`

	// Words is the loaded script's word count (type "ready").
	Words int `json:"words,omitempty"`

	// Position, MatchedIndices and Similarity describe an accepted match
	// (type "match").
	Position       int     `json:"position,omitempty"`
	MatchedIndices []int   `json:"matched_indices,omitempty"`
	Similarity     float64 `json:"similarity,omitempty"`

	// Error describes a rejected client frame (type "error").
	Error string `json:"error,omitempty"`
}

// outbound is the bounded, close-safe channel the tracker's listener writes
// match events into. The tracker drain loop runs on its own goroutine, so a
// late emission racing connection teardown must find a closed flag, not a
// closed channel.
type outbound struct {
	mu     sync.Mutex
	closed bool
	ch     chan serverMessage
}

func newOutbound() *outbound {
	return &outbound{ch: make(chan serverMessage, outboundBuffer)}
}

// send enqueues msg without ever blocking the caller. Frames are dropped
// when the buffer is full or the connection is tearing down; a display that
// misses one match event catches up on the next.
func (o *outbound) send(msg serverMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- msg:
	default:
		slog.Warn("follow: outbound buffer full, dropping frame", "type", msg.Type)
	}
}

// close marks the outbound as closed and closes the channel so the writer
// pump drains and exits.
func (o *outbound) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

// handleFollow upgrades the connection to WebSocket and runs one tracking
// session for its lifetime. The client supplies the script and spoken-word
// batches; the server pushes match events as the cursor advances.
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("follow: websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	s.sessions.Add(1)
	defer s.sessions.Add(-1)

	ctx := r.Context()
	out := newOutbound()
	tr := s.newSessionTracker(out)

	// Writer pump: the tracker's drain loop must never block on a slow
	// client, so delivery goes through the bounded outbound channel.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range out.ch {
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := writeWS(writeCtx, conn, msg)
			cancel()
			if err != nil {
				slog.Debug("follow: write failed, client gone", "err", err)
				return
			}
		}
	}()

	s.readLoop(ctx, conn, tr, out)

	// Discard in-flight work before tearing down the outbound channel.
	tr.Reset()
	out.close()
	<-writerDone

	conn.Close(websocket.StatusNormalClosure, "bye")
}

// readLoop processes client frames until the connection drops or ctx ends.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, tr *tracker.Tracker, out *outbound) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			slog.Debug("follow: read ended", "err", err)
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			out.send(serverMessage{Type: "error", Error: "invalid JSON frame"})
			continue
		}

		switch msg.Type {
		case "script":
			var script *tracker.Script
			if msg.Text != "" {
				script = tracker.NewScriptFromText(msg.Text)
			} else {
				script = tracker.NewScript(msg.Words)
			}
			if script.Len() == 0 {
				out.send(serverMessage{Type: "error", Error: "script has no words"})
				continue
			}
			tr.LoadScript(script)
			out.send(serverMessage{Type: "ready", Words: script.Len()})

		case "batch":
			tr.Submit(tracker.Batch(msg.Words))

		case "precision":
			tr.SetPrecision(msg.Precision)

		case "reset":
			tr.Reset()

		default:
			out.send(serverMessage{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

// newSessionTracker builds a per-connection tracker from the current config
// defaults, delivering match events into out.
func (s *Server) newSessionTracker(out *outbound) *tracker.Tracker {
	cfg := s.currentConfig()

	var scorer similarity.Scorer = similarity.Levenshtein{}
	if cfg.Tracker.Scorer == config.ScorerJaroWinkler {
		scorer = similarity.JaroWinkler{}
	}

	opts := []tracker.Option{
		tracker.WithScorer(scorer),
		tracker.WithListener(tracker.ListenerFunc(func(ev tracker.MatchEvent) {
			out.send(serverMessage{
				Type:           "match",
				Position:       ev.Position,
				MatchedIndices: ev.MatchedIndices,
				Similarity:     ev.Candidate.RawSimilarity,
			})
		})),
	}
	if s.metrics != nil {
		opts = append(opts, tracker.WithMetrics(s.metrics))
	}
	if s.stats != nil {
		opts = append(opts, tracker.WithStats(s.stats))
	}
	if p := cfg.Tracker.Precision; p != 0 {
		opts = append(opts, tracker.WithPrecision(p))
	}
	if ms := cfg.Tracker.DebounceMS; ms > 0 {
		opts = append(opts, tracker.WithDebounce(time.Duration(ms)*time.Millisecond))
	}
	if ms := cfg.Tracker.SliceBudgetMS; ms > 0 {
		opts = append(opts, tracker.WithSliceBudget(time.Duration(ms)*time.Millisecond))
	}

	return tracker.New(opts...)
}

// writeWS marshals msg and sends it as one text frame.
func writeWS(ctx context.Context, conn *websocket.Conn, msg serverMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
