package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/punisher1/nt/pkg/cliconfig"
	"github.com/punisher1/nt/pkg/engine"
	"github.com/punisher1/nt/pkg/i18n"
	"github.com/punisher1/nt/pkg/logging"
	"github.com/punisher1/nt/pkg/protocol"
	"github.com/punisher1/nt/pkg/tui"
	"github.com/spf13/cobra"
)

// stopTimeout bounds the shutdown of a session after the UI exits.
const stopTimeout = 5 * time.Second

// run loads the configuration, starts one session for spec and hands it to
// the terminal UI or the plain line mode until the user quits or a signal
// arrives.
func (o *rootOptions) run(cmd *cobra.Command, spec engine.Spec, tf *tlsFlags) error {
	cfg, err := o.loadConfig(tf)
	if err != nil {
		return err
	}
	loc := localizerFor(cfg)

	log, closer, err := o.logger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() { _ = closer.Close() }()

	if err := tf.apply(&spec, cfg, log); err != nil {
		return err
	}

	registry := protocol.NewRegistry()
	sess, err := engine.NewSession(engine.SessionConfig{
		Spec: spec,
		Options: engine.Options{
			QueueSize:       cfg.PeerQueue,
			ResponseTimeout: cfg.HTTP.ResponseTimeout,
			DefaultStatus:   cfg.HTTP.DefaultStatus,
			IdleTimeout:     cfg.UDP.IdleTimeout,
			Logger:          log,
		},
		Bridge: protocol.BridgeConfig{
			Capacity:    cfg.Bridge.Capacity,
			SendTimeout: cfg.Bridge.SendTimeout,
			Logger:      log,
		},
		Registry: registry,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := teardown(stopCtx, registry, sess, log); err != nil {
			log.Warn("session stop failed", "error", err)
		}
	}()

	h := sess.Handler()
	log.Info("session started", "handler", h.Name(), "address", boundAddr(h))

	if o.plain {
		fmt.Fprintln(cmd.ErrOrStderr(), announcement(loc, h))
		return tui.RunPlain(ctx, sess, cmd.InOrStdin(), cmd.OutOrStdout(), tui.PlainOptions{Localizer: loc})
	}
	return tui.Run(ctx, sess, tui.Options{
		Localizer: loc,
		Vertical:  cfg.Layout == cliconfig.LayoutVertical,
	})
}

// teardown stops every handler still registered, then the session's pump.
func teardown(ctx context.Context, registry *protocol.Registry, sess *engine.Session, log *slog.Logger) error {
	log.Info("stopping", "handlers", registry.Count())
	err := registry.StopAll(ctx)
	return errors.Join(err, sess.Stop(ctx))
}

// loadConfig layers the command-line flags over the file and environment
// configuration and validates the result.
func (o *rootOptions) loadConfig(tf *tlsFlags) (*cliconfig.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv(cliconfig.EnvConfig)
	}
	cfg, err := cliconfig.LoadAll(path)
	if err != nil {
		return nil, err
	}
	cliconfig.MergeConfig(cfg, o.flagConfig(tf), cliconfig.SourceFlag)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// flagConfig expresses the set flags as a config layer. Unset flags are
// zero and so leave lower layers alone.
func (o *rootOptions) flagConfig(tf *tlsFlags) *cliconfig.Config {
	fc := &cliconfig.Config{
		Language: o.lang,
		Log: cliconfig.LogConfig{
			Level:  o.logLevel,
			Format: o.logFormat,
			File:   o.logFile,
		},
	}
	if o.vertical {
		fc.Layout = cliconfig.LayoutVertical
	}
	if tf != nil {
		fc.TLS = cliconfig.TLSConfig{
			Cert:     tf.cert,
			Key:      tf.key,
			CA:       tf.ca,
			Insecure: tf.insecure,
		}
	}
	return fc
}

// logger builds the session logger. The terminal UI owns the screen, so it
// logs to a rotating file only; plain mode also reports warnings on stderr.
func (o *rootOptions) logger(cfg *cliconfig.Config, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	lc := logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
	}
	file := logging.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}

	if o.plain {
		return logging.Setup(lc, file, stderr)
	}
	if file.Path == "" {
		file.Path = logging.DefaultFilePath()
	}
	return logging.Setup(lc, file, nil)
}

func localizerFor(cfg *cliconfig.Config) *i18n.Localizer {
	return i18n.Detect(cfg.Language, os.Getenv)
}

func boundAddr(h protocol.Handler) string {
	if a, ok := h.(protocol.Addressable); ok {
		if addr := a.Addr(); addr != "" {
			return addr
		}
	}
	return h.Metadata().Address
}

func announcement(loc *i18n.Localizer, h protocol.Handler) string {
	if h.Metadata().Role == protocol.RoleServer {
		return loc.T(i18n.KeyListening, boundAddr(h))
	}
	return loc.T(i18n.KeyConnectedTo, h.Metadata().Address)
}
