// Package migrator applies and reverts SQL schema migrations.
//
// Migrations are read from files named "<id>-<name>.up.sql" and
// "<id>-<name>.down.sql", and applied in ID order. The IDs of applied
// migrations are stored in the _migrations table.
package migrator
