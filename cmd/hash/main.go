// Package main hashes API keys for manual database work. The api_keys table
// holds bcrypt hashes rather than raw keys, so seeding a record by hand means
// hashing the key first. Pass a raw key as the only argument to hash it, or
// run with no arguments to mint a fresh key and print both the key and its
// hash, ready to insert.
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/pkgindex/pkgindex/internal/auth"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: hash [api-key]")
	}

	if len(args) == 1 {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), auth.BcryptCost)
		if err != nil {
			return err
		}
		fmt.Println(string(hash))
		return nil
	}

	key, hash, _, err := auth.GenerateAPIKey("pkx")
	if err != nil {
		return err
	}
	fmt.Printf("key:  %s\nhash: %s\n", key, hash)
	return nil
}
