package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/spf13/cobra"
)

const defaultEnvFile = ".env"

type rootOptions struct {
	envFile string
	verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "linkgraph",
		Short:         "Versioned entities with linked entity resolution over GraphQL",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(opts.envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile, "environment file to load before reading the configuration")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newServeCommand(opts),
		newResolveCommand(opts),
	)

	return cmd
}

// loadEnv loads the environment file. A missing default file is not an error.
func loadEnv(file string) error {
	if file == "" {
		return nil
	}

	err := godotenv.Load(file)
	if err != nil {
		if file == defaultEnvFile && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return helper.NewError("load env file", err)
	}
	return nil
}

func (o *rootOptions) logger(out io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return helper.NewLogger(out, level)
}
