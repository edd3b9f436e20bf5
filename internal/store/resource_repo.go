package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

// ResourceRepo persists resources and their external-ID aliases.
type ResourceRepo struct {
	db *sql.DB
}

func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// Put inserts a resource, or updates its attributes/geometry if one
// already exists under the given external ID.
func (r *ResourceRepo) Put(ctx context.Context, realmID, resourceTypeID int, externalID string, attrs json.RawMessage, geometry []byte) (int, error) {
	if attrs == nil {
		attrs = json.RawMessage("{}")
	}
	if externalID == "" {
		externalID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "store: put resource: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var resourceID int
	err = tx.QueryRowContext(ctx,
		`SELECT resource_id FROM external_ids WHERE realm_id = $1 AND resource_type_id = $2 AND external_id = $3`,
		realmID, resourceTypeID, externalID).Scan(&resourceID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx,
			`INSERT INTO resource (realm_id, resource_type_id, attributes, geometry)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			realmID, resourceTypeID, attrs, geometry).Scan(&resourceID)
		if err != nil {
			return 0, pkgerrors.Wrap(err, "store: insert resource")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO external_ids (realm_id, resource_type_id, resource_id, external_id)
			 VALUES ($1, $2, $3, $4)`,
			realmID, resourceTypeID, resourceID, externalID)
		if err != nil {
			return 0, pkgerrors.Wrap(err, "store: insert external id")
		}
	case err != nil:
		return 0, pkgerrors.Wrap(err, "store: lookup external id")
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE resource SET attributes = $1, geometry = $2 WHERE id = $3`,
			attrs, geometry, resourceID)
		if err != nil {
			return 0, pkgerrors.Wrap(err, "store: update resource")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, pkgerrors.Wrap(err, "store: put resource: commit")
	}
	return resourceID, nil
}

// ResolveExternalID returns the internal resource ID for an external
// ID, or 0 and false if unknown.
func (r *ResourceRepo) ResolveExternalID(ctx context.Context, realmID, resourceTypeID int, externalID string) (int, bool, error) {
	var id int
	err := r.db.QueryRowContext(ctx,
		`SELECT resource_id FROM external_ids WHERE realm_id = $1 AND resource_type_id = $2 AND external_id = $3`,
		realmID, resourceTypeID, externalID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pkgerrors.Wrap(err, "store: resolve external id")
	}
	return id, true, nil
}

// Get loads a single resource by internal ID.
func (r *ResourceRepo) Get(ctx context.Context, realmID, resourceID int) (*Resource, error) {
	var res Resource
	err := r.db.QueryRowContext(ctx,
		`SELECT id, realm_id, resource_type_id, attributes, COALESCE(ST_AsBinary(geometry), '') FROM resource
		 WHERE realm_id = $1 AND id = $2`,
		realmID, resourceID).Scan(&res.ID, &res.RealmID, &res.ResourceTypeID, &res.Attributes, &res.Geometry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.New("store: resource not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: get resource")
	}
	return &res, nil
}

// ListByType returns every resource of a given type within a realm,
// without geometry. Manifest export uses ListForExport instead.
func (r *ResourceRepo) ListByType(ctx context.Context, realmID, resourceTypeID int) ([]Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, realm_id, resource_type_id, attributes FROM resource
		 WHERE realm_id = $1 AND resource_type_id = $2 ORDER BY id`,
		realmID, resourceTypeID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: list resources")
	}
	defer rows.Close()

	var out []Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.RealmID, &res.ResourceTypeID, &res.Attributes); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan resource")
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ResourceExportRow is a resource joined with its resource type name
// and external ID, for manifest export.
type ResourceExportRow struct {
	ResourceType string
	ExternalID   string
	Attributes   json.RawMessage
	Geometry     json.RawMessage
}

// ListForExport returns every externally-addressable resource in the
// realm (i.e. one with an external_ids row), for Exporter.Export.
// Geometry is rendered as GeoJSON text so it round-trips as JSON/YAML
// document content rather than raw WKB bytes.
func (r *ResourceRepo) ListForExport(ctx context.Context, realmID int) ([]ResourceExportRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT resource_type.name, external_ids.external_id, resource.attributes,
		       COALESCE(ST_AsGeoJSON(resource.geometry), '')
		FROM resource
		JOIN resource_type ON resource_type.id = resource.resource_type_id
		JOIN external_ids ON external_ids.resource_id = resource.id
		     AND external_ids.realm_id = resource.realm_id
		     AND external_ids.resource_type_id = resource.resource_type_id
		WHERE resource.realm_id = $1
		ORDER BY resource_type.name, external_ids.external_id`, realmID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: list resources for export")
	}
	defer rows.Close()

	var out []ResourceExportRow
	for rows.Next() {
		var row ResourceExportRow
		var geoJSON string
		if err := rows.Scan(&row.ResourceType, &row.ExternalID, &row.Attributes, &geoJSON); err != nil {
			return nil, pkgerrors.Wrap(err, "store: scan resource export row")
		}
		if geoJSON != "" {
			row.Geometry = json.RawMessage(geoJSON)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
