// cmd/adduser/main.go
// Creates a trainer, or resets the password of an existing one.
//
// Usage:
//
//	go run ./cmd/adduser -username alice -password testing
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/SkillsGen/trainers/auth"
	"github.com/SkillsGen/trainers/config"
	bundb "github.com/SkillsGen/trainers/db"
	applog "github.com/SkillsGen/trainers/logger"
	"github.com/SkillsGen/trainers/query"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	flag.Parse()

	hash, err := auth.HashPassword(*username, *password)
	if err != nil {
		log.Fatal("both -username and -password are required: ", err)
	}

	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	db := bundb.Setup(cfg, logger)
	defer db.Close()

	ctx := context.Background()
	if err := bundb.CreateTables(ctx, db); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	created, err := upsertTrainer(ctx, query.New(db, query.WithLogger(logger)), *username, hash)
	if err != nil {
		logger.Fatal("save trainer failed", zap.Error(err))
	}
	if created {
		fmt.Printf("trainer %q created\n", *username)
		return
	}
	fmt.Printf("trainer %q updated\n", *username)
}

// upsertTrainer inserts the trainer, or updates the hash when the username is
// already taken. It reports whether a new row was created.
func upsertTrainer(ctx context.Context, runner query.Runner, username, hash string) (bool, error) {
	// Login trims the username before lookup.
	username = strings.TrimSpace(username)
	params := query.Params{"username": username, "hash": hash}

	res, err := runner.Execute(ctx, "INSERT INTO trainers (username, hash) VALUES (:username, :hash)", params)
	if err != nil {
		return false, err
	}
	if !res.NoEffect() {
		return true, nil
	}

	res, err = runner.Execute(ctx, "UPDATE trainers SET hash = :hash WHERE username = :username", params)
	if err != nil {
		return false, err
	}
	if res.NoEffect() {
		return false, fmt.Errorf("trainer %q was neither inserted nor updated", username)
	}
	return false, nil
}
