package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

// ErrConsumed is yielded when a single-pass sequence is ranged over a second time.
var ErrConsumed = errors.New("stream already consumed")

var dataField = []byte("data:")

// MaxLineSize caps a single event-stream line. Longer lines end the stream with an error
// matching bufio.ErrTooLong.
const MaxLineSize = 1024 * 1024

// Payloads yields the payload of every `data:` line read from r, in order. A payload is
// only valid until the next iteration.
//
// Reads are line-buffered: a partial line is held until its newline arrives, so the
// output does not depend on how the bytes were split across reads. The sequence ends
// without yielding when the DoneSentinel payload is seen. Reaching EOF first yields
// domain.ErrStreamTruncated; an unterminated final line is dropped.
func Payloads(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		scanner.Split(scanTerminatedLines)

		for scanner.Scan() {
			payload, ok := dataPayload(scanner.Bytes())
			if !ok {
				continue
			}
			if string(payload) == DoneSentinel {
				return
			}
			if !yield(payload, nil) {
				return
			}
		}

		err := scanner.Err()
		switch {
		case err == nil:
			yield(nil, domain.ErrStreamTruncated)
		case errors.Is(err, bufio.ErrTooLong):
			yield(nil, fmt.Errorf("read stream: line longer than %d bytes: %w", MaxLineSize, err))
		default:
			yield(nil, fmt.Errorf("read stream: %w", err))
		}
	}
}

// scanTerminatedLines is bufio.ScanLines without the final unterminated line.
func scanTerminatedLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// dataPayload extracts the value of a `data:` field from a complete line.
// Comments, blank lines and other SSE fields report ok=false.
func dataPayload(line []byte) ([]byte, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, dataField) {
		return nil, false
	}
	payload := line[len(dataField):]
	if len(payload) > 0 && payload[0] == ' ' {
		payload = payload[1:]
	}
	if len(payload) == 0 {
		return nil, false
	}
	return payload, true
}

// Decode turns an event-stream body into a lazy, single-pass sequence of chunks.
//
// Malformed or unrecognized records are logged and skipped. The sequence ends after the
// first terminal chunk, at the DoneSentinel, or with an error item. body is closed on
// every exit path, including when the consumer stops ranging early.
func Decode(body io.ReadCloser, logger *slog.Logger) iter.Seq2[Chunk, error] {
	if logger == nil {
		logger = slog.Default()
	}
	var used atomic.Bool

	return func(yield func(Chunk, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(Chunk{}, ErrConsumed)
			return
		}
		defer func() {
			if err := body.Close(); err != nil {
				logger.Debug("failed to close stream body", "error", err)
			}
		}()

		for payload, err := range Payloads(body) {
			if err != nil {
				yield(Chunk{}, err)
				return
			}

			var chunk Chunk
			if err := json.Unmarshal(payload, &chunk); err != nil {
				logger.Warn("skipping malformed stream record", "error", err, "payload_len", len(payload))
				continue
			}
			if !chunk.Type.valid() {
				logger.Warn("skipping stream record with unknown type", "type", string(chunk.Type))
				continue
			}

			if !yield(chunk, nil) || chunk.Terminal() {
				return
			}
		}
	}
}
