// Package sse decodes the newline-delimited event stream produced by
// chat-completion endpoints. Frames arrive as raw byte chunks split at
// arbitrary points; the decoder reassembles complete lines, extracts the
// incremental text content from each data frame, and tolerates the
// keep-alive and partially-corrupt frames some vendors emit.
package sse

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/lumeng-dev/clipinsight/internal/logging"
)

// doneSentinel is the reserved end-of-stream frame value.
const doneSentinel = "[DONE]"

// Decoder turns raw byte chunks into text deltas. It maintains a single
// rolling buffer so frames split across reads decode identically to
// frames delivered whole. The zero value is not usable; use NewDecoder.
type Decoder struct {
	buf    strings.Builder
	logger *logging.Logger
}

// NewDecoder creates a Decoder. Pass nil to disable decode logging.
func NewDecoder(logger *logging.Logger) *Decoder {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Decoder{logger: logger}
}

// Feed appends a chunk to the rolling buffer and returns the text deltas
// carried by every complete line now available. The trailing (possibly
// incomplete) fragment stays buffered for the next call.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf.Write(chunk)

	data := d.buf.String()
	idx := strings.LastIndexByte(data, '\n')
	if idx < 0 {
		return nil
	}

	complete := data[:idx]
	rest := data[idx+1:]
	d.buf.Reset()
	d.buf.WriteString(rest)

	var deltas []string
	for _, line := range strings.Split(complete, "\n") {
		if delta, ok := d.decodeLine(line); ok {
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// Finish discards whatever remains in the buffer. A final unterminated
// line is not a complete frame and must not be parsed.
func (d *Decoder) Finish() {
	if d.buf.Len() > 0 {
		d.logger.Debug("discarding unterminated trailing bytes", "len", d.buf.Len())
		d.buf.Reset()
	}
}

// decodeLine extracts the text delta from one complete line. Blank lines,
// the terminator sentinel, non-data lines, unparsable payloads, and
// payloads without a content field all yield ("", false).
func (d *Decoder) decodeLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	if trimmed == "data:"+doneSentinel || trimmed == "data: "+doneSentinel {
		return "", false
	}
	if !strings.HasPrefix(trimmed, "data:") {
		return "", false
	}

	// Accept both "data:" and "data: " prefixes.
	payload := strings.TrimPrefix(trimmed, "data:")
	payload = strings.TrimPrefix(payload, " ")

	var frame chunkFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		// Vendors occasionally emit partial or corrupt keep-alive frames.
		d.logger.Debug("skipping unparsable frame", "error", err)
		return "", false
	}

	delta := frame.contentDelta()
	if delta == "" {
		return "", false
	}
	return delta, true
}

// chunkFrame is the vendor payload shape for one streamed completion chunk.
type chunkFrame struct {
	Choices []struct {
		Delta struct {
			Content json.RawMessage `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// contentDelta extracts the incremental text. The content field may be a
// plain string or an array of parts, where each part is a string or an
// object whose text field is a string or a {value: string} wrapper.
// Absent or unrecognized content yields the empty string.
func (f chunkFrame) contentDelta() string {
	if len(f.Choices) == 0 {
		return ""
	}
	raw := f.Choices[0].Delta.Content
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []any
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var b strings.Builder
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			b.WriteString(v)
		case map[string]any:
			switch text := v["text"].(type) {
			case string:
				b.WriteString(text)
			case map[string]any:
				if value, ok := text["value"].(string); ok {
					b.WriteString(value)
				}
			}
		}
	}
	return b.String()
}

// readBufSize is the chunk size used when draining a transport stream.
const readBufSize = 4096

// DecodeStream reads r until EOF, feeding chunks through the decoder and
// invoking onDelta for every non-empty text delta in order. The context
// is checked on every read iteration so cancellation interrupts decoding
// between chunks; cancelling the context that created r also aborts the
// underlying transport. Returns the concatenation of all deltas.
func DecodeStream(ctx context.Context, r io.Reader, logger *logging.Logger, onDelta func(string) error) (string, error) {
	d := NewDecoder(logger)
	var full strings.Builder
	buf := make([]byte, readBufSize)

	for {
		if err := ctx.Err(); err != nil {
			d.Finish()
			return full.String(), err
		}

		n, err := r.Read(buf)
		if n > 0 {
			for _, delta := range d.Feed(buf[:n]) {
				full.WriteString(delta)
				if onDelta != nil {
					if cbErr := onDelta(delta); cbErr != nil {
						d.Finish()
						return full.String(), cbErr
					}
				}
			}
		}
		if err == io.EOF {
			d.Finish()
			return full.String(), nil
		}
		if err != nil {
			d.Finish()
			return full.String(), err
		}
	}
}
