package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/siherrmann/linkgraph/model"
	loadSql "github.com/siherrmann/linkgraph/sql"
)

// LinksDBHandlerFunctions defines the interface for Links database operations.
type LinksDBHandlerFunctions interface {
	InsertLink(ctx context.Context, link *model.Link) error
	SelectLinksFromEntityVersion(ctx context.Context, entityVersionID uuid.UUID) ([]*model.Link, error)
	SelectLinksToEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Link, error)
}

// LinksDBHandler handles link-related database operations
type LinksDBHandler struct {
	db *helper.Database
	q  querier
}

// NewLinksDBHandler creates a new links database handler.
// It initializes the database connection and loads link-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
// The entities table has to exist before, see NewEntitiesDBHandler.
func NewLinksDBHandler(db *helper.Database, force bool) (*LinksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	linksDbHandler := &LinksDBHandler{
		db: db,
		q:  db.Instance,
	}

	err := loadSql.LoadLinksSql(linksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load links sql", err)
	}

	err = linksDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized LinksDBHandler")

	return linksDbHandler, nil
}

// CreateTable creates the 'links' table in the database.
// If the table already exists, it does not create it again.
func (h *LinksDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_links();`)
	if err != nil {
		log.Panicf("error initializing links table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table links")

	return nil
}

// WithTx returns a handler running its statements inside tx
func (h *LinksDBHandler) WithTx(tx *sql.Tx) *LinksDBHandler {
	return &LinksDBHandler{
		db: h.db,
		q:  tx,
	}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func scanLink(row rowScanner) (*model.Link, error) {
	link := &model.Link{}
	var sourceVersion, destinationVersion uuid.NullUUID
	err := row.Scan(
		&link.ID,
		&link.AccountID,
		&link.SourceEntityID,
		&sourceVersion,
		&link.DestinationEntityID,
		&destinationVersion,
		&link.Path,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sourceVersion.Valid {
		link.SourceEntityVersionID = &sourceVersion.UUID
	}
	if destinationVersion.Valid {
		link.DestinationEntityVersionID = &destinationVersion.UUID
	}
	return link, nil
}

// InsertLink inserts a new link
func (h *LinksDBHandler) InsertLink(ctx context.Context, link *model.Link) error {
	if link == nil {
		return helper.NewError("link validation", fmt.Errorf("link is nil"))
	}

	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_link($1, $2, $3, $4, $5, $6)`,
		link.AccountID,
		link.SourceEntityID,
		nullUUID(link.SourceEntityVersionID),
		link.DestinationEntityID,
		nullUUID(link.DestinationEntityVersionID),
		link.Path,
	)

	inserted, err := scanLink(row)
	if err != nil {
		return helper.NewError("scan", err)
	}
	*link = *inserted

	return nil
}

// SelectLinksFromEntityVersion retrieves the outgoing links of one entity version
func (h *LinksDBHandler) SelectLinksFromEntityVersion(ctx context.Context, entityVersionID uuid.UUID) ([]*model.Link, error) {
	return h.selectLinks(ctx, `SELECT * FROM select_links_from_entity_version($1)`, entityVersionID)
}

// SelectLinksToEntity retrieves the links pointing at an entity from entities of the account.
// Only the latest version of each source entity counts.
func (h *LinksDBHandler) SelectLinksToEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Link, error) {
	return h.selectLinks(ctx, `SELECT * FROM select_links_to_entity($1, $2)`, accountID, entityID)
}

func (h *LinksDBHandler) selectLinks(ctx context.Context, query string, args ...any) ([]*model.Link, error) {
	rows, err := h.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	links := []*model.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		links = append(links, link)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return links, nil
}
