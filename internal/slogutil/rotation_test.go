package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"", 0},
		{"invalid", 0},
		{"-5MB", 0},
		{"100", 100},
		{"100B", 100},
		{"100b", 100},
		{"1KB", 1024},
		{"10kb", 10240},
		{"10MB", 10 * 1024 * 1024},
		{"10 MB", 10 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"1.5MB", int64(1.5 * 1024 * 1024)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSize(tt.input); got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jls.log")

	rf, err := OpenRotatingFile(path, 50, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	line := []byte(strings.Repeat("a", 29) + "\n")
	for i := 0; i < 7; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("%s should exist: %v", filepath.Base(p), err)
			continue
		}
		if info.Size() > 50 {
			t.Errorf("%s size = %d, want <= 50", filepath.Base(p), info.Size())
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("only two backups should be kept")
	}
}

func TestRotatingFile_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jls.log")
	rf, err := OpenRotatingFile(path, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	_, _ = rf.Write([]byte("0123456789"))
	_, _ = rf.Write([]byte("abc"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "abc" {
		t.Errorf("content = %q, want %q", data, "abc")
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backup should be created when maxBackups is 0")
	}
}

func TestSetup_FileMirrorsWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jls.log")
	var stderr bytes.Buffer

	logger, closer, err := Setup(Options{
		Level:   slog.LevelDebug,
		File:    path,
		MaxSize: "1MB",
		Stderr:  &stderr,
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Debug("debug detail")
	logger.Warn("compiler missing")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "debug detail") || !strings.Contains(string(data), "compiler missing") {
		t.Errorf("log file missing records: %s", data)
	}
	if strings.Contains(stderr.String(), "debug detail") {
		t.Error("debug records should not reach stderr")
	}
	if !strings.Contains(stderr.String(), "compiler missing") {
		t.Error("warnings should be mirrored to stderr")
	}
}

func TestSetup_StderrOnly(t *testing.T) {
	var stderr bytes.Buffer
	logger, closer, err := Setup(Options{Level: slog.LevelInfo, Stderr: &stderr})
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info("started")
	if !strings.Contains(stderr.String(), "[info] started") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
