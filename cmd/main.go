// Package main provides the CLI entrypoint of domainwatch.
// It wires subcommands (check, serve, enqueue, seed, migrate), loads
// configuration, and initializes logging.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"

	"domainwatch/internal/config"
	"domainwatch/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadConfig reads the config file, falling back to environment variables
// and defaults when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Printf("config file %s not found, using environment", path)

		return config.LoadEnv() //nolint: wrapcheck
	}

	return config.Load(path) //nolint: wrapcheck
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use:   "domainwatch",
		Short: "Monitors domain registrations and alerts before they expire",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	flags := flag.NewFlagSet("domainwatch", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configPath := flags.String("c", "config.yml", "The config file path")
	_ = flags.Parse(configArgs(os.Args[1:]))

	log.Println("loading config ...")
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	if err := logger.SetupWithFile(cfg.Environment, cfg.Log.File); err != nil {
		log.Fatal("could not set up logger", err)
	}

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		checkCommand(cfg),
		serveCommand(cfg),
		enqueueCommand(cfg),
		seedCommand(cfg),
		migrateCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}

// configArgs picks the -c/--config flag out of the command line so the
// config can be loaded before cobra parses subcommand flags.
func configArgs(args []string) []string {
	for i, a := range args {
		switch a {
		case "-c", "--config", "-config":
			if i+1 < len(args) {
				return []string{"-c", args[i+1]}
			}
		}
		for _, prefix := range []string{"-c=", "--config=", "-config="} {
			if v, ok := strings.CutPrefix(a, prefix); ok && v != "" {
				return []string{"-c", v}
			}
		}
	}

	return nil
}
