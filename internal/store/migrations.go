package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	migrationsRoot   = "migrations"
	gooseTable       = "goose_db_version"
	logMsgSchemaDrop = "dropping schema"
	logMsgMigrated   = "migration applied"
	logAttrVersion   = "version"
)

// Migrations returns a goose provider over the embedded migrations of the
// gateway's dialect.
func (g *SQLGateway) Migrations() (*goose.Provider, error) {
	return newMigrationProvider(g.backend.dialect(), g.backend)
}

func newMigrationProvider(dialect string, b backend) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, path.Join(migrationsRoot, dialect))
	if err != nil {
		return nil, fmt.Errorf("opening %s migrations: %w", dialect, err)
	}
	var gooseDialect goose.Dialect
	switch dialect {
	case dialectPostgres:
		gooseDialect = goose.DialectPostgres
	case dialectSQLite:
		gooseDialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	return goose.NewProvider(gooseDialect, b.stdDB(), fsys)
}

// Migrate applies all pending migrations.
func (g *SQLGateway) Migrate(ctx context.Context) error {
	provider, err := g.Migrations()
	if err != nil {
		return wrapErr("migrate", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return wrapErr("migrate", err)
	}
	for _, r := range results {
		g.logger.Info(logMsgMigrated, logAttrVersion, r.Source.Version, logAttrDialect, g.backend.dialect())
	}
	return nil
}

// ResetSchema drops the books table together with the migration history and
// migrates from scratch.
func (g *SQLGateway) ResetSchema(ctx context.Context) (err error) {
	ctx, span := g.tracer.Start(ctx, spanResetSchema)
	span.SetAttributes(attribute.String("db.system", g.backend.dialect()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	g.logger.Warn(logMsgSchemaDrop, logAttrDialect, g.backend.dialect())
	db := g.backend.stdDB()
	for _, table := range []string{tableBooks, gooseTable} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return wrapErr("drop "+table, err)
		}
	}
	return g.Migrate(ctx)
}
