package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"irrad-data/internal/common/database"
	"irrad-data/internal/common/logger"
	"irrad-data/internal/config"
)

// apply-migration runs .sql files against the configured database, each file
// in its own transaction. With a directory argument every *.sql file in it is
// applied in name order.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <migration.sql|migrations_dir>...\n", os.Args[0])
		os.Exit(2)
	}

	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, "console", "apply-migration")
	if err != nil {
		log = zap.NewNop()
	}
	defer log.Sync()

	files, err := migrationFiles(os.Args[1:])
	if err != nil {
		log.Fatal("Failed to list migrations", zap.Error(err))
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.String("host", cfg.Database.Host), zap.Error(err))
	}
	defer db.Close()
	log.Info("Connected to database", zap.String("database", cfg.Database.Database))

	ctx := context.Background()
	for _, f := range files {
		n, err := apply(ctx, db, f)
		if err != nil {
			log.Fatal("Migration failed", zap.String("file", f), zap.Error(err))
		}
		log.Info("Migration applied", zap.String("file", f), zap.Int("statements", n))
	}
}

func migrationFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.sql"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

func apply(ctx context.Context, db *sql.DB, file string) (int, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", file, err)
	}
	stmts := splitStatements(string(content))
	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		for i, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d (%.80s): %w", i+1, stmt, err)
			}
		}
		return nil
	})
	return len(stmts), err
}

// splitStatements splits on ';' and drops comment lines and empty statements.
// Migrations must not contain ';' inside string literals or function bodies.
func splitStatements(sqlText string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sqlText, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var stmts []string
	for _, s := range strings.Split(b.String(), ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
