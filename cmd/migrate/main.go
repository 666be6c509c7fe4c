// Command migrate applies the SQL files under migrations/ in lexical order,
// tracking applied files in schema_migrations. "migrate down" reverts the most
// recently applied file using its "-- +migrate Down" section.
package main

import (
	"bufio"
	"database/sql"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"readloom/internal/config"
	"readloom/internal/db"
	"readloom/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const downMarker = "-- +migrate Down"

func main() {
	dir := flag.String("dir", "migrations", "directory containing .sql migration files")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		logger.Log.Fatal("could not ensure schema_migrations", zap.Error(err))
	}

	if flag.Arg(0) == "down" {
		if err := revertLast(database, *dir); err != nil {
			logger.Log.Fatal("revert failed", zap.Error(err))
		}
		return
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		logger.Log.Fatal("could not list migrations", zap.String("dir", *dir), zap.Error(err))
	}
	sort.Strings(files)

	for _, file := range files {
		filename := filepath.Base(file)
		var applied bool
		if err := database.Get(&applied, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			logger.Log.Fatal("could not read migration state", zap.Error(err))
		}
		if applied {
			continue
		}
		if err := runSection(database, file, false); err != nil {
			logger.Log.Fatal("migration failed", zap.String("file", filename), zap.Error(err))
		}
		if _, err := database.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			logger.Log.Fatal("could not record migration", zap.String("file", filename), zap.Error(err))
		}
		logger.Log.Info("applied migration", zap.String("file", filename))
	}
}

func revertLast(database *sqlx.DB, dir string) error {
	var filename string
	err := database.Get(&filename, `SELECT filename FROM schema_migrations ORDER BY filename DESC LIMIT 1`)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Log.Info("nothing to revert")
			return nil
		}
		return err
	}
	if err := runSection(database, filepath.Join(dir, filename), true); err != nil {
		return err
	}
	if _, err := database.Exec(`DELETE FROM schema_migrations WHERE filename = $1`, filename); err != nil {
		return err
	}
	logger.Log.Info("reverted migration", zap.String("file", filename))
	return nil
}

func runSection(database execer, path string, down bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	up, downSQL, _ := strings.Cut(string(content), downMarker)
	section := up
	if down {
		section = downSQL
	}
	for _, stmt := range splitStatements(section) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := database.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements breaks a migration section on semicolons, dropping comment
// lines. Good enough for the DDL in migrations/; not a general SQL parser.
func splitStatements(section string) []string {
	var out []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(section))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Contains(line, ";") {
			out = append(out, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		out = append(out, current.String())
	}
	return out
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
