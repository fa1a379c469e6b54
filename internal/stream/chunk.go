// Package stream decodes and encodes the chat backend's server-sent-event framing.
//
// Each record is a single `data: <json>` line carrying a Chunk. A literal `data: [DONE]`
// record ends the stream without producing a chunk.
package stream

// ChunkType tags the variant carried by a Chunk.
type ChunkType string

const (
	ChunkToken   ChunkType = "token"
	ChunkSession ChunkType = "session"
	ChunkDone    ChunkType = "done"
	ChunkError   ChunkType = "error"
)

// DoneSentinel is the payload that terminates a stream.
const DoneSentinel = "[DONE]"

// Chunk is one discrete unit of a chat stream. Only the fields belonging to Type are set.
type Chunk struct {
	Type      ChunkType `json:"type"`
	Content   string    `json:"content,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Token returns a token chunk.
func Token(content string) Chunk {
	return Chunk{Type: ChunkToken, Content: content}
}

// Session returns a chunk announcing the session the exchange is recorded in.
func Session(sessionID string) Chunk {
	return Chunk{Type: ChunkSession, SessionID: sessionID}
}

// Done returns the successful terminal chunk.
func Done(sessionID string) Chunk {
	return Chunk{Type: ChunkDone, SessionID: sessionID}
}

// Failure returns the error terminal chunk.
func Failure(msg string) Chunk {
	return Chunk{Type: ChunkError, Error: msg}
}

// Terminal reports whether the chunk ends the stream.
func (c Chunk) Terminal() bool {
	return c.Type == ChunkDone || c.Type == ChunkError
}

func (t ChunkType) valid() bool {
	switch t {
	case ChunkToken, ChunkSession, ChunkDone, ChunkError:
		return true
	}
	return false
}
