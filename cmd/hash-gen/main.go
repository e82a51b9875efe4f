package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/pkg/crypto"
)

var (
	printfFn       = fmt.Printf
	generateHashFn = generateHash
	fatalfFn       = log.Fatalf
	loadCfg        = config.Load
)

// resolvePassword takes the first argument as the password to hash.
func resolvePassword(args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", errors.New("usage: hash-gen <password>")
	}
	return args[0], nil
}

func generateHash(password string, cost int) (string, error) {
	return crypto.HashPassword(password, cost)
}

func main() {
	password, err := resolvePassword(os.Args[1:])
	if err != nil {
		fatalfFn("%v", err)
		return
	}

	cost := loadCfg().Auth.BcryptCost
	printfFn("Generating hash with bcrypt cost %d\n", cost)

	hash, err := generateHashFn(password, cost)
	if err != nil {
		fatalfFn("Failed to hash password: %v", err)
		return
	}

	printfFn("Bcrypt Hash: %s\n", hash)
}
