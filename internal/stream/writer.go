package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrFlushUnsupported is returned when the response writer cannot stream.
var ErrFlushUnsupported = errors.New("streaming not supported")

// Writer encodes chunks onto an HTTP response, flushing after every record.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter prepares w for event-stream output and writes the stream headers.
// Extra headers must be set before calling NewWriter.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrFlushUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one chunk record.
func (sw *Writer) Send(c Chunk) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}
	return sw.write(string(data))
}

// Close writes the DoneSentinel record.
func (sw *Writer) Close() error {
	return sw.write(DoneSentinel)
}

// Ping writes a comment line that keeps idle connections open.
func (sw *Writer) Ping() error {
	if _, err := io.WriteString(sw.w, ": ping\n\n"); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

func (sw *Writer) write(data string) error {
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}
