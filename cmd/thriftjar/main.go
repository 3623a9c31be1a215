// Command thriftjar runs the thrift compiler bundled for the current machine.
//
// Every argument is forwarded to the compiler. A leading
// --thriftversion=<version> selects a bundled version other than the default.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/thriftjar/internal/binary"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/config"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/launcher"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/log"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/platform"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/runner"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return launcher.ExitStartFailure
	}

	logger := log.New(log.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Debug().Str("launcher_version", Version).Str(log.FieldVersion, cfg.Version).Msg("starting")

	l, err := buildLauncher(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("cannot set up thrift launcher")
		return launcher.ExitStartFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := rootCmd(l.Launch)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(ctx)
	reportError(logger, err)
	return launcher.ExitCode(err)
}

func rootCmd(launch func(ctx context.Context, args []string) (int, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "thriftjar [--thriftversion=<version>] [thrift arguments...]",
		Short: "Run the bundled Apache Thrift compiler",
		Long: `Run the Apache Thrift compiler bundled for this machine.

All arguments, including --help, are passed to the compiler. An optional first
argument --thriftversion=<version> selects the bundled compiler version.`,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := launch(cmd.Context(), args)
			return err
		},
	}
}

// buildLauncher wires the launcher from cfg.
func buildLauncher(cfg *config.Config, logger zerolog.Logger) (*launcher.Launcher, error) {
	verifier := binary.NewVerifier(nil)
	if cfg.KeyringPath != "" {
		keyring, err := binary.LoadKeyring(cfg.KeyringPath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", config.EnvKeyring, err)
		}
		verifier = binary.NewVerifier(keyring)
	}

	extractor := binary.NewExtractor(nil,
		binary.WithTempDir(cfg.TempDir),
		binary.WithVerifier(verifier),
		binary.WithLogger(log.WithComponent(logger, "extractor")),
	)

	return launcher.New(
		platform.NewDetector(),
		extractor,
		runner.New(log.WithComponent(logger, "thrift")),
		launcher.RealClock{},
		log.WithComponent(logger, "launcher"),
		cfg.Version,
	), nil
}

// reportError logs failures the compiler did not report itself. A compiler
// that ran and failed has already logged its own stderr.
func reportError(logger zerolog.Logger, err error) {
	switch {
	case err == nil:
	case launcher.IsStartFailure(err):
		logger.Error().Err(err).Msg("could not start thrift compiler")
	default:
		if _, ok := runner.ExitCodeOf(err); ok {
			logger.Debug().Err(err).Msg("thrift compiler failed")
			return
		}
		logger.Error().Err(err).Msg("thrift compiler did not complete")
	}
}
