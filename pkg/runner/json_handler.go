package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
)

// JSONHandler implements the IOHandler interface for JSON-Lines communication.
// Every frame is written as one JSON object per line.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// systemMessage is the line written by SystemOutput.
type systemMessage struct {
	System string `json:"system"`
}

// commandMessage is the object form accepted by Input.
type commandMessage struct {
	Choice  *int   `json:"choice,omitempty"`
	Command string `json:"command,omitempty"`
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

func (h *JSONHandler) Output(ctx context.Context, frame Frame) error {
	return h.Encoder.Encode(frame)
}

// Input reads one line. It accepts a bare number, a JSON string, or an
// object such as {"choice": 2} or {"command": "reset"}.
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

		clean, sanitizeErr := SanitizeInput(text)
		if sanitizeErr != nil {
			if err := h.SystemOutput(ctx, sanitizeErr.Error()); err != nil {
				return "", err
			}
			continue
		}
		return decodeCommand(clean), nil
	}
}

func decodeCommand(text string) string {
	var s string
	if err := json.Unmarshal([]byte(text), &s); err == nil {
		return strings.TrimSpace(s)
	}
	var msg commandMessage
	if err := json.Unmarshal([]byte(text), &msg); err == nil {
		if msg.Choice != nil {
			return strconv.Itoa(*msg.Choice)
		}
		if msg.Command != "" {
			return msg.Command
		}
	}
	return text
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(systemMessage{System: msg})
}
