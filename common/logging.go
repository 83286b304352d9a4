// Package common provides the process-wide structured logger shared by every
// gateway component, with stream separation (errors to stderr, everything
// else to stdout) and optional size-rotated file output.
package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes logrus-formatted lines to stderr when they carry
// level=error (or higher) and to stdout otherwise, optionally tee-ing to a
// rotating file.
type OutputSplitter struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxBytes   int64
	backups    int
	currentLen int64
}

func (s *OutputSplitter) Write(p []byte) (int, error) {
	if isErrorLine(p) {
		_, _ = os.Stderr.Write(p)
	} else {
		_, _ = os.Stdout.Write(p)
	}
	if s.file != nil {
		s.writeFile(p)
	}
	return len(p), nil
}

func isErrorLine(p []byte) bool {
	return bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte("level=fatal")) || bytes.Contains(p, []byte("level=panic"))
}

func (s *OutputSplitter) writeFile(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentLen+int64(len(p)) > s.maxBytes && s.maxBytes > 0 {
		s.rotate()
	}
	n, err := s.file.Write(p)
	if err == nil {
		s.currentLen += int64(n)
	}
}

// rotate renames the current file through backup generations, oldest dropped.
func (s *OutputSplitter) rotate() {
	_ = s.file.Close()
	for i := s.backups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", s.filePath, i)
		dst := fmt.Sprintf("%s.%d", s.filePath, i+1)
		if _, err := os.Stat(src); err == nil {
			_ = os.Rename(src, dst)
		}
	}
	if s.backups > 0 {
		_ = os.Rename(s.filePath, s.filePath+".1")
	}
	f, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err == nil {
		s.file = f
		s.currentLen = 0
	}
}

// Logger is the global logger used by every package in this module.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// FileConfig describes the optional rotating-file sink.
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxBytes   int64
	BackupCnt  int
}

// Configure applies level, format, and optional file-sink settings to the
// global logger. Called once at startup from config values.
func Configure(level string, jsonFormat bool, toStdout bool, file FileConfig) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
	if jsonFormat {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	splitter := &OutputSplitter{}
	if file.Enabled && file.Path != "" {
		if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(file.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		info, _ := f.Stat()
		splitter.file = f
		splitter.filePath = file.Path
		splitter.maxBytes = file.MaxBytes
		splitter.backups = file.BackupCnt
		if info != nil {
			splitter.currentLen = info.Size()
		}
	}
	if !toStdout && !file.Enabled {
		// Still log somewhere rather than discarding entirely.
		toStdout = true
	}
	Logger.SetOutput(splitter)
	return nil
}
