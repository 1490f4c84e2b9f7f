// Package stream reads transition events from and writes notifications to
// JSON-Lines streams.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/geofence/internal/logging"
	"github.com/aretw0/geofence/pkg/domain"
)

// Decoder reads one TransitionEvent per line. Blank lines and lines starting
// with '#' are skipped.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{scanner: bufio.NewScanner(r)}
}

// Next returns the next event, or io.EOF at the end of the stream.
// A malformed line returns an error naming the line; decoding may continue.
func (d *Decoder) Next() (domain.TransitionEvent, error) {
	for d.scanner.Scan() {
		d.line++
		text := strings.TrimSpace(d.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var ev domain.TransitionEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return domain.TransitionEvent{}, fmt.Errorf("line %d: %w", d.line, err)
		}
		return ev, nil
	}
	if err := d.scanner.Err(); err != nil {
		return domain.TransitionEvent{}, err
	}
	return domain.TransitionEvent{}, io.EOF
}

// Pump decodes r into out until EOF or ctx is done. Malformed lines are
// logged and skipped. out is not closed.
func Pump(ctx context.Context, r io.Reader, out chan<- domain.TransitionEvent, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	dec := NewDecoder(r)
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var syntax *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntax) || errors.As(err, &typeErr) || errors.Is(err, domain.ErrUnknownTransition) {
				logger.Warn("skipping malformed event", "error", err)
				continue
			}
			return err
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sink implements ports.DisplaySink by writing one JSON object per notification.
type Sink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewSink creates a sink writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{enc: json.NewEncoder(w)}
}

// Display implements ports.DisplaySink.
func (s *Sink) Display(ctx context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(n)
}
