package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`
-- header comment
CREATE TABLE a (id INT);
  -- indented comment
CREATE INDEX i ON a(id);

;`)
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a(id)"}, stmts)
}

func TestMigrationFilesSortsDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	files, err := migrationFiles([]string{dir})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, strings.HasSuffix(files[0], "001_a.sql"))

	_, err = migrationFiles([]string{filepath.Join(dir, "missing.sql")})
	assert.Error(t, err)
}

func TestSchemaMigrationParses(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_irrad_schema.sql"))
	require.NoError(t, err)
	stmts := splitStatements(string(content))
	require.NotEmpty(t, stmts)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE "), s)
	}
}
