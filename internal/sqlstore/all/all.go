// Package all wires every built-in SQL dialect into the sqlstore factory.
//
// This package exists purely for side effects: importing it (normally as a
// blank import in the wiring layer) runs the init functions of each concrete
// dialect, which register their provider factories. After import, the
// following kinds are available through sqlstore.Open:
//
//   - "sqlite"
//   - "postgres"
//   - "mysql"
//   - "mssql"
package all

import (
	_ "github.com/SygmaHQ/unstructured-ingest/internal/sqlstore/mssql"
	_ "github.com/SygmaHQ/unstructured-ingest/internal/sqlstore/mysql"
	_ "github.com/SygmaHQ/unstructured-ingest/internal/sqlstore/postgres"
	_ "github.com/SygmaHQ/unstructured-ingest/internal/sqlstore/sqlite"
)
