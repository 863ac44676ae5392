package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `-cmd=create` writes new migrations.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// source resolves dir to the filesystem goose reads from. An empty dir
// selects the migrations compiled into the binary.
func source(dir string) (fs.FS, string) {
	if dir == "" {
		return embedded, embeddedDir
	}
	return os.DirFS(dir), "."
}

func withGoose(dir string, fn func(dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	fsys, root := source(dir)
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	// goose migrations target Postgres; SQLite dev mode uses AutoMigrate instead
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn(root)
}

// Run executes a goose command (up, down, status, ...) against db.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	return withGoose(dir, func(root string) error {
		if err := goose.RunContext(ctx, command, db, root, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// MigrateToVersion moves the schema up or down to targetVersion
// (YYYYMMDDHHMMSS).
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	return withGoose(dir, func(root string) error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		switch {
		case current == target:
			return nil
		case current < target:
			err = goose.UpToContext(ctx, db, root, target)
		default:
			err = goose.DownToContext(ctx, db, root, target)
		}
		if err != nil {
			return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
		}
		return nil
	})
}
