package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrSegmentFailure   = errors.New("segment processing failure")
	ErrExternalTool     = errors.New("external tool error")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a short operator-facing hint for a classified error.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "check the config file (diarize config validate)"
	case errors.Is(err, ErrModelUnavailable):
		return "verify model paths and run diarize preflight"
	case errors.Is(err, ErrValidation):
		return "check the input audio format and sample rate"
	case errors.Is(err, ErrExternalTool):
		return "inspect the model worker output above"
	default:
		return ""
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "diarization failure"
	}
	return strings.Join(parts, ": ")
}
