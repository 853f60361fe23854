package test

import (
	"fmt"
	"log"
	"testing"

	"github.com/google/uuid"

	"todoitems/internal/adapter/database/sqlite"
)

// InitTestDB opens a private in-memory SQLite database with the migrations applied.
func InitTestDB() *sqlite.DB {
	db, err := sqlite.NewDB(sqlite.Config{
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		Name:         "todoitems_test",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, nil)

	if err != nil {
		log.Fatal(err)
	}

	return db
}

// CleanDB empties the todos table and resets its id sequence.
func CleanDB(t *testing.T, db *sqlite.DB) {
	t.Helper()

	for _, stmt := range []string{
		"DELETE FROM todos",
		"DELETE FROM sqlite_sequence WHERE name = 'todos'",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to clean database with %q: %v", stmt, err)
		}
	}
}
