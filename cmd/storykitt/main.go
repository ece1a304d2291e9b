package main

import (
	"fmt"
	"log"
	"os"

	"github.com/kittclouds/storykitt/internal/config"
	"github.com/kittclouds/storykitt/internal/store"
	"github.com/kittclouds/storykitt/pkg/narrative"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("storykitt: %v", err)
	}

	rootCmd := NewRootCmd(version, &app{cfg: cfg})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries config into the subcommands; the database is opened per
// invocation.
type app struct {
	cfg config.Config
}

func (a *app) openStore() (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStoreWithDSN(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.cfg.DBPath, err)
	}
	return s, nil
}

// loadStory opens the database and returns the saved story, failing with a
// hint when init has not run yet.
func (a *app) loadStory() (*store.SQLiteStore, *narrative.Store, error) {
	db, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	story, err := db.LoadStory()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if story == nil {
		db.Close()
		return nil, nil, fmt.Errorf("no story in %s; run `storykitt init` first", a.cfg.DBPath)
	}
	return db, story, nil
}
