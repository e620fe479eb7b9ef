// Command fix-migration clears a dirty flag left in schema_migrations when a
// migration run was interrupted mid-flight. golang-migrate refuses to touch a
// dirty schema, so until the flag is cleared the server cannot start. Inspect
// the schema manually before running this; it only resets the flag.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func migrationState(db *sql.DB) (version int, dirty bool, err error) {
	err = db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	return version, dirty, err
}

func run() error {
	password := os.Getenv("DATABASE_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dsn := fmt.Sprintf("host=localhost port=5432 user=pkgindex password=%s dbname=pkgindex sslmode=disable", password)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	version, dirty, err := migrationState(db)
	if err != nil {
		return fmt.Errorf("check migration state: %w", err)
	}
	log.Printf("current migration state: version=%d dirty=%v", version, dirty)

	if !dirty {
		log.Println("migration state is already clean")
		return nil
	}

	if _, err := db.Exec("UPDATE schema_migrations SET dirty = false"); err != nil {
		return fmt.Errorf("clear dirty flag: %w", err)
	}

	version, dirty, err = migrationState(db)
	if err != nil {
		return fmt.Errorf("re-check migration state: %w", err)
	}
	log.Printf("migration state after repair: version=%d dirty=%v", version, dirty)
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
