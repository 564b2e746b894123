package database

import (
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"
)

// MigrationTable records applied schema migrations.
const MigrationTable = "schema_migrations"

// Migrate applies the transit schema. Running it again against an already
// migrated store is a no-op.
func Migrate(db *DB) (int, error) {
	dialect, source, err := migrationsFor(db.Driver())
	if err != nil {
		return 0, err
	}
	set := migrate.MigrationSet{TableName: MigrationTable}
	n, err := set.Exec(db.DB.DB, dialect, source, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("migrate transit schema: %w", err)
	}
	db.log.Info("schema migrated", zap.Int("applied", n))
	return n, nil
}

func migrationsFor(driver string) (string, migrate.MigrationSource, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return "sqlite3", transitMigrations(sqliteTypes), nil
	case "postgres":
		return "postgres", transitMigrations(postgresTypes), nil
	default:
		return "", nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}

type columnTypes struct {
	id  string
	ref string
	tod string
}

var (
	sqliteTypes   = columnTypes{id: "INTEGER PRIMARY KEY AUTOINCREMENT", ref: "INTEGER", tod: "TEXT"}
	postgresTypes = columnTypes{id: "BIGSERIAL PRIMARY KEY", ref: "BIGINT", tod: "TIME"}
)

func transitMigrations(t columnTypes) *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "0001_transit_schema",
				Up: []string{
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS bus_stops (
    id %s,
    code VARCHAR(255) NOT NULL
)`, t.id),
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS bus_lines (
    id %s,
    number INTEGER NOT NULL
)`, t.id),
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS routes (
    id %s,
    name VARCHAR(255) NOT NULL,
    bus_line_id %s REFERENCES bus_lines(id)
)`, t.id, t.ref),
					`CREATE INDEX IF NOT EXISTS idx_routes_bus_line_id ON routes(bus_line_id)`,
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS bus_stops_routes (
    route_id %[1]s NOT NULL REFERENCES routes(id),
    bus_stop_id %[1]s NOT NULL REFERENCES bus_stops(id),
    position INTEGER NOT NULL,
    UNIQUE (route_id, bus_stop_id),
    UNIQUE (route_id, position)
)`, t.ref),
					`CREATE INDEX IF NOT EXISTS idx_bus_stops_routes_bus_stop_id ON bus_stops_routes(bus_stop_id)`,
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS schedules (
    id %s,
    arrival_time %s NOT NULL
)`, t.id, t.tod),
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS buses (
    id %[1]s,
    schedule_id %[2]s NOT NULL REFERENCES schedules(id),
    bus_line_id %[2]s NOT NULL REFERENCES bus_lines(id)
)`, t.id, t.ref),
					`CREATE INDEX IF NOT EXISTS idx_buses_schedule_id ON buses(schedule_id)`,
					`CREATE INDEX IF NOT EXISTS idx_buses_bus_line_id ON buses(bus_line_id)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS buses`,
					`DROP TABLE IF EXISTS schedules`,
					`DROP TABLE IF EXISTS bus_stops_routes`,
					`DROP TABLE IF EXISTS routes`,
					`DROP TABLE IF EXISTS bus_lines`,
					`DROP TABLE IF EXISTS bus_stops`,
				},
			},
		},
	}
}
