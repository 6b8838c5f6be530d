package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aicert/cert_platform/services"
)

func TestParseRequiresConfiguredModel(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "text.txt")
	if err := os.WriteFile(path, []byte("1. question"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := parseCmd()
	cmd.SetArgs([]string{path})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestExtractMissingFile(t *testing.T) {
	cmd := extractCmd()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.pdf")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	if !errors.Is(err, services.ErrExtractionEmpty) {
		t.Fatalf("got %v, want ErrExtractionEmpty", err)
	}
}

func TestCommandsRequireOneArgument(t *testing.T) {
	cmd := ingestCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected argument error")
	}
}
