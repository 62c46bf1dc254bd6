// Package logging provides structured logging configuration for nt.
//
// This package wraps log/slog so every handler and the presentation layer log
// the same way. The terminal UI owns the screen, so records normally go to a
// size-rotated file rather than stderr.
//
// # Usage
//
//	logger, closer, err := logging.Setup(
//	    logging.Config{Level: logging.LevelInfo, Format: logging.FormatText},
//	    logging.FileConfig{Path: logging.DefaultFilePath()},
//	    nil,
//	)
//	defer closer.Close()
//
//	logger.Info("server started", "addr", "127.0.0.1:8080")
//
// # Integration
//
// Components accept a *slog.Logger in their config. If none is provided they
// use logging.Nop().
package logging
