package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/spf13/cobra"
)

type resolveOptions struct {
	account string
	entity  string
	version string
}

type resolveRequest struct {
	accountID       uuid.UUID
	entityID        uuid.UUID
	entityVersionID *uuid.UUID
}

func (o *resolveOptions) parse() (*resolveRequest, error) {
	accountID, err := uuid.Parse(o.account)
	if err != nil {
		return nil, helper.NewError("parse --account", err)
	}
	entityID, err := uuid.Parse(o.entity)
	if err != nil {
		return nil, helper.NewError("parse --entity", err)
	}

	request := &resolveRequest{
		accountID: accountID,
		entityID:  entityID,
	}
	if o.version != "" {
		versionID, err := uuid.Parse(o.version)
		if err != nil {
			return nil, helper.NewError("parse --version", err)
		}
		request.entityVersionID = &versionID
	}
	return request, nil
}

func newResolveCommand(root *rootOptions) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the linked entities of an entity as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := opts.parse()
			if err != nil {
				return err
			}

			// Logs go to stderr, stdout only carries the JSON result
			logger := root.logger(cmd.ErrOrStderr())
			if !root.verbose {
				logger = helper.NewLogger(cmd.ErrOrStderr(), slog.LevelWarn)
			}

			dbConfig, err := helper.NewDatabaseConfiguration()
			if err != nil {
				return err
			}
			lg, err := linkgraph.NewLinkgraph(dbConfig, linkgraph.WithLogger(logger), linkgraph.WithAccountCacheSize(0))
			if err != nil {
				return err
			}
			defer lg.Close()

			ctx := cmd.Context()
			entity, err := lg.GetEntity(ctx, request.accountID, &request.entityID, request.entityVersionID)
			if err != nil {
				return err
			}
			if entity == nil {
				return fmt.Errorf("entity %s not found in account %s", request.entityID, request.accountID)
			}

			resolved, err := lg.LinkedEntities(ctx, entity)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(resolved)
		},
	}

	cmd.Flags().StringVar(&opts.account, "account", "", "account id owning the entity")
	cmd.Flags().StringVar(&opts.entity, "entity", "", "entity id")
	cmd.Flags().StringVar(&opts.version, "version", "", "entity version id, defaults to the latest version")
	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("entity")

	return cmd
}
