package yunet

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.InputSize != 416 {
		t.Errorf("InputSize: got %d, want 416", cfg.InputSize)
	}
	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh >= 1 {
		t.Errorf("ConfidenceThresh out of range: %v", cfg.ConfidenceThresh)
	}
}

func TestNew_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")

	if _, err := New(cfg); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestNew_BadInputSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputSize = 0

	if _, err := New(cfg); err == nil {
		t.Error("expected error for zero input size")
	}
}
