package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Palette used by TextHandler when the writer supports colour.
const (
	colorState  = "#818cf8"
	colorEvent  = "#c084fc"
	colorError  = "#fb7185"
	colorSystem = "#a3a3a3"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader *bufio.Reader
	Writer io.Writer
	// Prompt is printed before each read. It defaults to "> " when reading from a
	// terminal and is empty otherwise.
	Prompt string

	out       *termenv.Output
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithPrompt overrides the prompt.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		out:    termenv.NewOutput(w),
	}
	if isTerminal(r) {
		h.Prompt = "> "
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// initPump starts the goroutine reading lines, so Input can honour ctx while a
// read is blocked.
func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			return
		}
	}
}

// Input returns the next non-empty, sanitized line.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			if h.Prompt != "" {
				fmt.Fprint(h.Writer, h.Prompt)
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			text := strings.TrimSpace(res.text)
			if text == "" {
				continue
			}
			clean, err := SanitizeInput(text)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// Output prints the events, then the state, then the error.
func (h *TextHandler) Output(ctx context.Context, frame Frame) error {
	for _, e := range frame.Events {
		fmt.Fprintln(h.Writer, h.paint(colorEvent, "event: "+compact(e)))
	}
	fmt.Fprintln(h.Writer, h.paint(colorState, "state: "+compact(frame.State)))
	if frame.Error != "" {
		fmt.Fprintln(h.Writer, h.paint(colorError, "error: "+frame.Error))
	}
	return nil
}

// SystemOutput prints msg with a "[System]" prefix.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	fmt.Fprintln(h.Writer, h.paint(colorSystem, "[System] "+msg))
	return nil
}

func (h *TextHandler) paint(color, s string) string {
	return h.out.String(s).Foreground(h.out.Color(color)).String()
}

// compact renders v as single-line JSON, falling back to %v.
func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
