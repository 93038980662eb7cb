package source

import (
	"context"

	"github.com/koustreak/schemascope/internal/schema"
)

// Rows is the subset of a result set introspection needs.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// Querier runs a read-only statement. The Postgres and MySQL sources both
// implement it so the introspection below is shared.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// introspect turns (table, column) rows, ordered by table then ordinal
// position, into a Document. Consecutive rows of the same table form one
// definition, so the query's ORDER BY is the document order.
func introspect(ctx context.Context, q Querier, query string, args ...any) (*schema.Document, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doc := &schema.Document{}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, err
		}
		n := len(doc.Definitions)
		if n == 0 || doc.Definitions[n-1].Name != table {
			doc.Definitions = append(doc.Definitions, schema.Definition{Name: table})
			n++
		}
		doc.Definitions[n-1].Properties = append(doc.Definitions[n-1].Properties, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}
