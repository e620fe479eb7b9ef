// Package main is a diagnostic tool for testing database connectivity and
// inspecting live index data. It connects to the database, queries the
// projects and releases tables, and prints a summary to stdout. The binary
// exits with a non-zero code on any failure so it can be embedded in health
// checks or CI/CD pipeline steps to gate deployments on a reachable,
// populated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbPassword == "" {
		dbPassword = "pkgindex"
	}

	connStr := fmt.Sprintf("host=localhost port=5432 user=pkgindex password=%s dbname=pkgindex sslmode=disable", dbPassword)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	// Check projects
	fmt.Println("=== PROJECTS ===")
	rows, err := db.Query("SELECT id, name, lifecycle_status FROM projects")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, status string
		if err := rows.Scan(&id, &name, &status); err != nil {
			log.Printf("Warning: failed to scan project row: %v", err)
			continue
		}
		fmt.Printf("Project: %s [%s] (ID: %s)\n", name, status, id)
	}

	// Check releases
	fmt.Println("\n=== RELEASES ===")
	rows2, err := db.Query("SELECT id, project_id, version, readme FROM releases")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows2.Close()

	count := 0
	for rows2.Next() {
		var id, projectID, version string
		var readme *string
		if err := rows2.Scan(&id, &projectID, &version, &readme); err != nil {
			log.Printf("Warning: failed to scan release row: %v", err)
			continue
		}
		hasReadme := "NO"
		if readme != nil && *readme != "" {
			hasReadme = fmt.Sprintf("YES (%d chars)", len(*readme))
		}
		fmt.Printf("Release: %s (Project ID: %s, Release ID: %s) - README: %s\n", version, projectID, id, hasReadme)
		count++
	}

	if count == 0 {
		fmt.Println("No releases found!")
	}
}
