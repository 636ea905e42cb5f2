package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Each input line is either a JSON string or raw text; each Frame is one JSON object.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Input reads one line, unquoting it when it is a JSON string.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := h.Reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text == "" {
			if err != nil {
				return "", err
			}
			continue
		}

		var val string
		if json.Unmarshal([]byte(text), &val) == nil {
			text = val
		}
		return SanitizeInput(text)
	}
}

// Output encodes frame as one JSON line.
func (h *JSONHandler) Output(ctx context.Context, frame Frame) error {
	return h.Encoder.Encode(frame)
}

// SystemOutput encodes msg as {"system": msg}.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(map[string]string{"system": msg})
}
