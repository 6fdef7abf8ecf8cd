// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories and DDL bootstrappers with the storage package.
//
// Importing it makes the following sink kinds available at runtime:
//
//   - "postgres" (saptab/internal/storage/postgres)
//   - "mysql"    (saptab/internal/storage/mysql)
//   - "mssql"    (saptab/internal/storage/mssql)
//   - "sqlite"   (saptab/internal/storage/sqlite)
//
// Typical usage is a blank import from the binary's wiring layer
// (cmd/saptabd). A binary that only needs a subset of sinks can import the
// individual backend packages instead.
package all

import (
	_ "saptab/internal/storage/mssql"
	_ "saptab/internal/storage/mysql"
	_ "saptab/internal/storage/postgres"
	_ "saptab/internal/storage/sqlite"
)
