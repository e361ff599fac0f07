package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/siherrmann/linkgraph/model"
	loadSql "github.com/siherrmann/linkgraph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(ctx context.Context, entity *model.Entity) error
	InsertEntityVersion(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID, properties model.Properties, updatedByAccountID uuid.UUID) (*model.Entity, error)
	SelectEntityAccountID(ctx context.Context, entityID uuid.UUID, entityVersionID *uuid.UUID) (uuid.UUID, error)
	SelectEntityVersion(ctx context.Context, accountID uuid.UUID, entityVersionID uuid.UUID) (*model.Entity, error)
	SelectEntityLatestVersion(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) (*model.Entity, error)
	SelectEntityVersions(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Entity, error)
	DeleteEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
	q  querier
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
		q:  db.Instance,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' and 'entity_versions' tables in the database.
// If the tables already exist, it does not create them again.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables entities and entity_versions")

	return nil
}

// WithTx returns a handler running its statements inside tx
func (h *EntitiesDBHandler) WithTx(tx *sql.Tx) *EntitiesDBHandler {
	return &EntitiesDBHandler{
		db: h.db,
		q:  tx,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*model.Entity, error) {
	entity := &model.Entity{}
	var properties []byte
	err := row.Scan(
		&entity.EntityVersionID,
		&entity.EntityID,
		&entity.AccountID,
		&entity.EntityTypeID,
		&properties,
		&entity.Visibility,
		&entity.CreatedByAccountID,
		&entity.UpdatedByAccountID,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// JSONB key order decides which of two links to the same entity comes first
	entity.RawProperties = properties
	err = entity.Properties.Unmarshal(properties)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// InsertEntity inserts the first version of a new entity.
// A zero EntityID lets the database generate one. All generated fields are written back to entity.
func (h *EntitiesDBHandler) InsertEntity(ctx context.Context, entity *model.Entity) error {
	if entity == nil {
		return helper.NewError("entity validation", fmt.Errorf("entity is nil"))
	}
	if entity.Visibility != "" && !entity.Visibility.Valid() {
		return helper.NewError("entity validation", fmt.Errorf("invalid visibility %q", entity.Visibility))
	}

	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5, $6)`,
		entity.AccountID,
		uuid.NullUUID{UUID: entity.EntityID, Valid: entity.EntityID != uuid.Nil},
		entity.EntityTypeID,
		entity.Properties,
		string(entity.Visibility),
		entity.CreatedByAccountID,
	)

	inserted, err := scanEntity(row)
	if err != nil {
		return helper.NewError("scan", err)
	}
	*entity = *inserted

	return nil
}

// InsertEntityVersion adds a new version with the given properties to an existing entity.
// It returns nil without an error if the entity does not exist in the account.
func (h *EntitiesDBHandler) InsertEntityVersion(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID, properties model.Properties, updatedByAccountID uuid.UUID) (*model.Entity, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_entity_version($1, $2, $3, $4)`,
		accountID,
		entityID,
		properties,
		updatedByAccountID,
	)

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityAccountID returns the account owning the entity.
// If entityVersionID is set, the version has to belong to the entity.
// uuid.Nil is returned if no such entity exists.
func (h *EntitiesDBHandler) SelectEntityAccountID(ctx context.Context, entityID uuid.UUID, entityVersionID *uuid.UUID) (uuid.UUID, error) {
	version := uuid.NullUUID{}
	if entityVersionID != nil {
		version = uuid.NullUUID{UUID: *entityVersionID, Valid: true}
	}

	var accountID uuid.NullUUID
	err := h.q.QueryRowContext(
		ctx,
		`SELECT select_entity_account_id($1, $2)`,
		entityID,
		version,
	).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, nil
	} else if err != nil {
		return uuid.Nil, helper.NewError("scan", err)
	}

	if !accountID.Valid {
		return uuid.Nil, nil
	}
	return accountID.UUID, nil
}

// SelectEntityVersion retrieves one exact version, or nil if it does not exist in the account
func (h *EntitiesDBHandler) SelectEntityVersion(ctx context.Context, accountID uuid.UUID, entityVersionID uuid.UUID) (*model.Entity, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM select_entity_version($1, $2)`,
		accountID,
		entityVersionID,
	)

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityLatestVersion retrieves the newest version of an entity, or nil if it does not exist in the account
func (h *EntitiesDBHandler) SelectEntityLatestVersion(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) (*model.Entity, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM select_entity_latest_version($1, $2)`,
		accountID,
		entityID,
	)

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityVersions retrieves all versions of an entity, newest first
func (h *EntitiesDBHandler) SelectEntityVersions(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Entity, error) {
	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_entity_versions($1, $2)`,
		accountID,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	entities := []*model.Entity{}
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// DeleteEntity deletes an entity with all of its versions and outgoing links
func (h *EntitiesDBHandler) DeleteEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) error {
	_, err := h.q.ExecContext(
		ctx,
		`SELECT delete_entity($1, $2)`,
		accountID,
		entityID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
