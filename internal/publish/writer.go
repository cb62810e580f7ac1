package publish

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/roach88/droproute/internal/ir"
)

// Writer formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Writer prints one line per frame. Text lines look like
//
//	#0003  100ms  E1 E4
//
// and json lines are the bus envelope.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

// NewWriter creates a line writer. Unknown formats fall back to text.
func NewWriter(w io.Writer, format string) *Writer {
	if format != FormatJSON {
		format = FormatText
	}
	return &Writer{w: w, format: format}
}

// PublishActive implements engine.Publisher.
func (p *Writer) PublishActive(_ context.Context, frame ir.Frame) error {
	line, err := p.line(frame)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, line); err != nil {
		return fmt.Errorf("write frame %d: %w", frame.Seq, err)
	}
	return nil
}

func (p *Writer) line(frame ir.Frame) (string, error) {
	if p.format == FormatJSON {
		data, err := Encode(FrameMessage(frame))
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	}
	return FormatFrame(frame) + "\n", nil
}

// FormatFrame renders a frame as a single text line without newline.
func FormatFrame(frame ir.Frame) string {
	ids := make([]string, len(frame.Active))
	for i, id := range frame.Active {
		ids[i] = string(id)
	}
	active := strings.Join(ids, " ")
	if active == "" {
		active = "-"
	}
	return fmt.Sprintf("#%04d  %v  %s", frame.Seq, frame.At, active)
}
