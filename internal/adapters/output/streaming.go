// internal/adapters/output/streaming.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/platform/logx"
)

// StreamEvent es una línea del stream de eventos de un run.
type StreamEvent struct {
	Time  time.Time `json:"time"`
	RunID string    `json:"run_id"`
	Event string    `json:"event"`

	Seed  string            `json:"seed,omitempty"`
	State domain.ChainState `json:"state,omitempty"`
	Hops  int               `json:"hops,omitempty"`
	Final string            `json:"final_url,omitempty"`

	Key      string          `json:"key,omitempty"`
	Registry string          `json:"registry,omitempty"`
	Org      string          `json:"organization,omitempty"`
	Abuse    string          `json:"abuse_email,omitempty"`
	Cached   bool            `json:"cached,omitempty"`
	Failure  *domain.Failure `json:"error,omitempty"`
}

// Nombres de evento del stream.
const (
	EventChainStarted  = "chain_started"
	EventChainComplete = "chain_complete"
	EventAttribution   = "attribution"
)

// StreamingWriter escribe los eventos del run a medida que ocurren, una línea
// JSON por evento. Permite seguir un run largo sin esperar al record final.
type StreamingWriter struct {
	runID  string
	logger logx.Logger

	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
	events int
	err    error
}

var _ ports.Observer = (*StreamingWriter)(nil)

// NewStreamingWriter crea un writer sobre w.
func NewStreamingWriter(w io.Writer, runID string, logger logx.Logger) *StreamingWriter {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &StreamingWriter{
		runID:  runID,
		logger: logger.With("component", "streaming-writer"),
		w:      w,
		enc:    json.NewEncoder(w),
	}
}

// OpenStreamingWriter crea <dir>/phishtrace_<run>.events.jsonl.
func OpenStreamingWriter(dir, runID string, logger logx.Logger) (*StreamingWriter, string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, EventsFilename(runID))
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create events file: %w", err)
	}

	sw := NewStreamingWriter(f, runID, logger)
	sw.closer = f
	return sw, path, nil
}

// EventsFilename nombre del archivo de eventos de un run.
func EventsFilename(runID string) string {
	return fmt.Sprintf("phishtrace_%s.events.jsonl", sanitizeName(runID))
}

func (s *StreamingWriter) OnChainStarted(seed domain.URLSeed) {
	s.write(StreamEvent{Event: EventChainStarted, Seed: seed.URL})
}

func (s *StreamingWriter) OnChainComplete(chain *domain.Chain) {
	ev := StreamEvent{
		Event:   EventChainComplete,
		Seed:    chain.Seed.URL,
		State:   chain.State,
		Hops:    chain.Hops(),
		Failure: chain.Failure,
	}
	if last := chain.Last(); last != nil {
		ev.Final = last.URL
	}
	s.write(ev)
}

func (s *StreamingWriter) OnAttribution(rec *domain.AttributionRecord) {
	ev := StreamEvent{
		Event:    EventAttribution,
		Key:      rec.Key,
		Registry: rec.Registry,
		Cached:   rec.Cached,
		Failure:  rec.Failure,
	}
	if rec.Registration != nil {
		ev.Org = firstNonEmpty(rec.Registration.Organization, rec.Registration.Registrar, rec.Registration.Name)
		ev.Abuse = rec.Registration.AbuseEmail
	}
	s.write(ev)
}

func (s *StreamingWriter) write(ev StreamEvent) {
	ev.Time = time.Now().UTC()
	ev.RunID = s.runID

	s.mu.Lock()
	defer s.mu.Unlock()

	// Tras el primer fallo de escritura el stream queda desactivado.
	if s.err != nil {
		return
	}
	if err := s.enc.Encode(ev); err != nil {
		s.err = err
		s.logger.Warn("event stream disabled", "error", err.Error())
		return
	}
	s.events++
}

// Events retorna cuántos eventos se escribieron.
func (s *StreamingWriter) Events() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// Err retorna el primer error de escritura.
func (s *StreamingWriter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cierra el archivo subyacente si lo hay.
func (s *StreamingWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return s.err
	}
	err := s.closer.Close()
	s.closer = nil
	if s.err != nil {
		return s.err
	}
	return err
}
