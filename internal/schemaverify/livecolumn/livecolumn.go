// Package livecolumn defines the shared vocabulary component L's backends
// and orchestrator both need — kept in its own leaf package (depending only
// on internal/semtype) so the orchestrator can import every backend without
// a backend ever needing to import the orchestrator back.
package livecolumn

import (
	"context"

	"github.com/qlcompiler/qlc/internal/semtype"
)

// ColumnType is a live database's report of one column's shape, narrowed to
// the three primitive kinds §4.1's downcast understands.
type ColumnType struct {
	Name   string
	SemTag semtype.Tag
}

// LiveSchema is the minimal read surface component L needs from a
// connected database: the column shapes of one table, and a way to
// release the connection.
type LiveSchema interface {
	ColumnTypes(ctx context.Context, table string) (map[string]ColumnType, error)
	Close() error
}
