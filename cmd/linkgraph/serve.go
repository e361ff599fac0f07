package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/siherrmann/linkgraph"
	"github.com/siherrmann/linkgraph/graph"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/spf13/cobra"
)

var _ graph.Backend = (*linkgraph.Linkgraph)(nil)

type serveOptions struct {
	address         string
	path            string
	playground      bool
	concurrency     int
	complexityLimit int
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the GraphQL API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := root.logger(cmd.OutOrStdout())

			dbConfig, err := helper.NewDatabaseConfiguration()
			if err != nil {
				return err
			}
			serverConfig, err := helper.NewServerConfiguration()
			if err != nil {
				return err
			}
			opts.apply(cmd, serverConfig)

			lg, err := linkgraph.NewLinkgraph(
				dbConfig,
				linkgraph.WithLogger(logger),
				linkgraph.WithAccountCacheSize(serverConfig.AccountCacheSize),
				linkgraph.WithConcurrency(opts.concurrency),
			)
			if err != nil {
				return err
			}
			defer lg.Close()

			server, err := graph.NewServer(serverConfig, lg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&opts.address, "address", "", "listen address, overrides LINKGRAPH_ADDRESS")
	cmd.Flags().StringVar(&opts.path, "path", "", "GraphQL endpoint path, overrides LINKGRAPH_PATH")
	cmd.Flags().BoolVar(&opts.playground, "playground", true, "serve the GraphQL playground, overrides LINKGRAPH_PLAYGROUND")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "maximum links resolved at the same time per entity, 0 means no limit")
	cmd.Flags().IntVar(&opts.complexityLimit, "complexity-limit", 0, "maximum operation complexity, 0 disables the limit, overrides LINKGRAPH_COMPLEXITY_LIMIT")

	return cmd
}

// apply overrides the environment configuration with the flags set on the command line
func (o *serveOptions) apply(cmd *cobra.Command, config *helper.ServerConfiguration) {
	if cmd.Flags().Changed("address") {
		config.Address = o.address
	}
	if cmd.Flags().Changed("path") {
		config.Path = o.path
	}
	if cmd.Flags().Changed("playground") {
		config.EnablePlayground = o.playground
	}
	if cmd.Flags().Changed("complexity-limit") {
		config.ComplexityLimit = o.complexityLimit
	}
}
