package ollama

import (
	"errors"
	"fmt"
)

// ErrUnavailable wraps transport failures talking to Ollama.
var ErrUnavailable = errors.New("ollama unavailable")

// StatusError is returned when Ollama answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Ollama API returned status %d", e.Code)
}
