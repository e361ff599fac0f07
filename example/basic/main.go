package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/99designs/gqlgen/client"
	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph"
	"github.com/siherrmann/linkgraph/core/links"
	"github.com/siherrmann/linkgraph/graph"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/siherrmann/linkgraph/model"
)

const bookQuery = `query Book($accountId: ID!, $entityId: ID!) {
  entity(accountId: $accountId, entityId: $entityId) {
    entityId
    properties
    linkedEntities {
      entityId
      entityVersionId
      properties
    }
  }
}`

func linkTo(entityID uuid.UUID, entityVersionID *uuid.UUID) map[string]interface{} {
	linkedData := map[string]interface{}{"entityId": entityID.String()}
	if entityVersionID != nil {
		linkedData["entityVersionId"] = entityVersionID.String()
	}
	return map[string]interface{}{links.LinkedDataKey: linkedData}
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	logger := helper.NewLogger(os.Stdout, slog.LevelInfo)
	lg, err := linkgraph.NewLinkgraph(dbConfig, linkgraph.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create linkgraph: %v", err)
	}
	defer lg.Close()

	ctx := context.Background()
	accountID := uuid.New()
	personType := uuid.New()
	bookType := uuid.New()

	// Two authors, the book pins the first version of one and follows the latest of the other
	ada := &model.Entity{
		AccountID:          accountID,
		EntityTypeID:       personType,
		Properties:         model.Properties{"name": "Ada"},
		CreatedByAccountID: accountID,
	}
	grace := &model.Entity{
		AccountID:          accountID,
		EntityTypeID:       personType,
		Properties:         model.Properties{"name": "Grace"},
		CreatedByAccountID: accountID,
	}
	for _, author := range []*model.Entity{ada, grace} {
		if err := lg.CreateEntity(ctx, author); err != nil {
			log.Fatalf("Failed to create author: %v", err)
		}
	}

	adaVersion := ada.EntityVersionID
	book := &model.Entity{
		AccountID:    accountID,
		EntityTypeID: bookType,
		Properties: model.Properties{
			"title": "Notes on Linked Entities",
			"authors": []interface{}{
				linkTo(ada.EntityID, &adaVersion),
				linkTo(grace.EntityID, nil),
			},
		},
		CreatedByAccountID: accountID,
	}
	if err := lg.CreateEntity(ctx, book); err != nil {
		log.Fatalf("Failed to create book: %v", err)
	}
	fmt.Printf("Book created with ID: %s\n", book.EntityID)

	// New versions: the pinned link keeps the old one, the unpinned link follows
	if _, err := lg.UpdateEntity(ctx, accountID, ada.EntityID, model.Properties{"name": "Ada Lovelace"}, accountID); err != nil {
		log.Fatalf("Failed to update author: %v", err)
	}
	if _, err := lg.UpdateEntity(ctx, accountID, grace.EntityID, model.Properties{"name": "Grace Hopper"}, accountID); err != nil {
		log.Fatalf("Failed to update author: %v", err)
	}

	linked, err := lg.LinkedEntities(ctx, book)
	if err != nil {
		log.Fatalf("Failed to resolve linked entities: %v", err)
	}
	fmt.Printf("\nResolved %d linked entities:\n", len(linked))
	for i, entity := range linked {
		fmt.Printf("%d. %s (version %s): %v\n", i+1, entity.EntityID, entity.EntityVersionID, entity.Properties["name"])
	}

	// The same resolution through the GraphQL handler
	srv, err := graph.NewHandler(lg, 0, logger)
	if err != nil {
		log.Fatalf("Failed to create handler: %v", err)
	}
	response, err := client.New(srv).RawPost(bookQuery,
		client.Var("accountId", accountID.String()),
		client.Var("entityId", book.EntityID.String()),
	)
	if err != nil {
		log.Fatalf("Failed to query book: %v", err)
	}
	out, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal response: %v", err)
	}
	fmt.Printf("\nGraphQL response:\n%s\n", out)

	fmt.Println("\nBasic example completed successfully!")
}
