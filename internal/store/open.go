package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store/migrations"
)

type Options struct {
	// LogSQL logs every statement at info level instead of slow ones only.
	LogSQL bool
}

func gormConfig(opts Options) *gorm.Config {
	return &gorm.Config{
		Logger:  newGormLogger(slog.Default(), opts.LogSQL),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// OpenPostgres connects through pgx, applies the embedded goose migrations,
// and hands the same pool to gorm.
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*Store, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := Migrate(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(opts))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return New(gdb), nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// OpenSQLite opens a sqlite database and creates the schema from the models.
// Used by tests and local development.
func OpenSQLite(ctx context.Context, dsn string, opts Options) (*Store, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	st := New(gdb)
	if err := st.AutoMigrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return st, nil
}
