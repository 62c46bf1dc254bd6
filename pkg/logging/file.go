package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// File rotation defaults.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// FileConfig describes a rotating log file.
type FileConfig struct {
	// Path is the log file location. Empty disables file logging.
	Path string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFilePath returns <UserCacheDir>/nt/nt.log, or "" when the cache
// directory cannot be determined.
func DefaultFilePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nt", "nt.log")
}

// NewFileWriter returns a size-rotated writer for cfg.Path. The parent
// directory is created if missing.
func NewFileWriter(cfg FileConfig) (io.WriteCloser, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    orDefault(cfg.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: orDefault(cfg.MaxBackups, DefaultMaxBackups),
		MaxAge:     orDefault(cfg.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   cfg.Compress,
	}, nil
}

// ConsoleFloor is the lowest level Setup writes to the console sink.
const ConsoleFloor = LevelWarn

// Setup builds the application logger.
//
// Records at cfg.Level and above go to the rotating file when file.Path is
// set. When console is non-nil, records at ConsoleFloor and above are also
// written there as text. With neither sink the logger discards everything.
// The returned closer releases the file.
func Setup(cfg Config, file FileConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	var sinks []Sink
	var closer io.Closer = nopCloser{}

	if file.Path != "" {
		w, err := NewFileWriter(file)
		if err != nil {
			return nil, nil, err
		}
		closer = w
		fileCfg := cfg
		fileCfg.Output = w
		sinks = append(sinks, Sink{Handler: newHandler(fileCfg), Floor: cfg.Level})
	}

	if console != nil {
		consoleCfg := cfg
		consoleCfg.Output = console
		consoleCfg.Format = FormatText
		sinks = append(sinks, Sink{Handler: newHandler(consoleCfg), Floor: ConsoleFloor})
	}

	if len(sinks) == 0 {
		return Nop(), closer, nil
	}
	return slog.New(NewMultiHandler(sinks...)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
