package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bz888/parley/internal/logger"
)

const dataPrefix = "data: "

// LineReader splits an incrementally delivered byte stream into the payloads
// of its "data: " records. Chunks may cut a line, or a multi-byte character,
// at any offset; the carry buffer holds whatever has not been terminated by a
// newline yet. Splitting only ever happens at '\n', which cannot occur inside
// a UTF-8 multi-byte sequence, so runes are never torn across yields.
type LineReader struct {
	carry []byte
}

// Feed appends a chunk to the carry buffer and returns every complete payload
// it now holds, in arrival order. Lines without the "data: " prefix are
// dropped.
func (r *LineReader) Feed(chunk []byte) []string {
	r.carry = append(r.carry, chunk...)

	var payloads []string
	for {
		i := bytes.IndexByte(r.carry, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(r.carry[:i]))
		r.carry = r.carry[i+1:]

		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payloads = append(payloads, strings.TrimPrefix(line, dataPrefix))
	}
	return payloads
}

// Pending reports whether an unterminated line is still buffered.
func (r *LineReader) Pending() bool {
	return len(r.carry) > 0
}

// Reset discards any unterminated trailing line.
func (r *LineReader) Reset() {
	r.carry = nil
}

// Decode reads body until EOF and yields each payload to fn in arrival order.
// A trailing line without a newline is discarded when the stream ends. The
// context is checked between reads so cancellation stops the loop without
// yielding further payloads.
func Decode(ctx context.Context, body io.Reader, fn func(payload string) error) error {
	localLogger := logger.NewLogger("stream decode")

	reader := &LineReader{}
	defer reader.Reset()

	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := body.Read(buf)
		if n > 0 {
			for _, payload := range reader.Feed(buf[:n]) {
				if err := fn(payload); err != nil {
					return err
				}
			}
		}
		if err == io.EOF {
			if reader.Pending() {
				localLogger.Warn("Discarding unterminated trailing line")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
	}
}
