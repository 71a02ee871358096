package engine

import (
	"context"
	"strings"
)

// Datastore is a schema-backed view over a database: records stored through
// it conform to one schema URI.
type Datastore struct {
	SchemaURI string
	Database  Database
}

// Name returns the backing database name.
func (d *Datastore) Name() string {
	return d.Database.Name()
}

// Close closes the backing database.
func (d *Datastore) Close(ctx context.Context) error {
	return d.Database.Close(ctx)
}

// DatastoreDatabaseName derives the deterministic database name backing a
// schema URI. The same schema always maps to the same database.
func DatastoreDatabaseName(schemaURI string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, schemaURI)

	return "ds_" + mapped
}
