package services_test

import (
	"errors"
	"strings"
	"testing"

	"diarize/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "onnx", "embed", "worker exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"onnx", "embed", "worker exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaults(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "diarization failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestHint(t *testing.T) {
	cfgErr := services.Wrap(services.ErrConfiguration, "config", "validate", "bad", nil)
	if hint := services.Hint(cfgErr); !strings.Contains(hint, "config") {
		t.Fatalf("unexpected hint %q", hint)
	}
	if hint := services.Hint(errors.New("plain")); hint != "" {
		t.Fatalf("expected no hint for unclassified error, got %q", hint)
	}
	if hint := services.Hint(nil); hint != "" {
		t.Fatalf("expected no hint for nil, got %q", hint)
	}
}
