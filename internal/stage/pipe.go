package stage

import (
	"fmt"
	"os"
	"sync"
)

// Pipe is an OS pipe whose parent-side copies can be closed independently.
type Pipe struct {
	Reader *os.File
	Writer *os.File

	readerOnce sync.Once
	writerOnce sync.Once
}

// NewPipe allocates an OS pipe.
func NewPipe() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create pipe: %w", err)
	}
	return &Pipe{Reader: r, Writer: w}, nil
}

// CloseReader closes the parent's copy of the read end. Safe to call twice.
func (p *Pipe) CloseReader() {
	p.readerOnce.Do(func() { _ = p.Reader.Close() })
}

// CloseWriter closes the parent's copy of the write end. Safe to call twice.
func (p *Pipe) CloseWriter() {
	p.writerOnce.Do(func() { _ = p.Writer.Close() })
}

// Close releases both parent-side ends.
func (p *Pipe) Close() {
	p.CloseReader()
	p.CloseWriter()
}
