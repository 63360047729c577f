package stage

import (
	"strings"
	"sync"
)

// Tail is an io.Writer that retains the last Limit bytes written, used to
// attach a stage's final diagnostics to its failure.
type Tail struct {
	Limit int

	mu  sync.Mutex
	buf []byte
}

// NewTail returns a Tail keeping at most limit bytes.
func NewTail(limit int) *Tail {
	return &Tail{Limit: limit}
}

func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.Limit; t.Limit > 0 && over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

// String returns the retained text trimmed of surrounding whitespace.
func (t *Tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

// LastLine returns the final non-empty line retained.
func (t *Tail) LastLine() string {
	text := t.String()
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return text
}
