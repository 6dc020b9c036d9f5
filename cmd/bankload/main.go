// bankload imports an externally curated item-bank bundle (tests, stimuli,
// items) from a JSON file into the database. The engine itself treats the
// bank as read-only; this is the ops-side loading path.
//
//	bankload -f bank.json [-driver sqlite|postgres] [-dsn ...]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/toeigo/toeigo/internal/bank"
	"github.com/toeigo/toeigo/internal/config"
	"github.com/toeigo/toeigo/internal/db"
)

type bundle struct {
	Tests   []bank.Test     `json:"tests"`
	Stimuli []bank.Stimulus `json:"stimuli"`
	Items   []bank.Item     `json:"items"`
}

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	file := flag.String("f", "", "bank bundle JSON file")
	driver := flag.String("driver", cfg.DBDriver, "db driver")
	dsn := flag.String("dsn", cfg.DBDSN, "db dsn")
	flag.Parse()
	if *file == "" {
		log.Fatal("usage: bankload -f bank.json")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	var b bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		log.Fatalf("parse %s: %v", *file, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(*driver), *dsn)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := bank.NewSQLStore(dbh)

	for _, st := range b.Stimuli {
		if err := store.PutStimulus(ctx, st); err != nil {
			log.Fatalf("stimulus %s: %v", st.ID, err)
		}
	}
	for _, it := range b.Items {
		if it.Answer == "" {
			log.Fatalf("item %s: missing answer key", it.ID)
		}
		if err := store.PutItem(ctx, it); err != nil {
			log.Fatalf("item %s: %v", it.ID, err)
		}
	}
	for _, t := range b.Tests {
		if err := store.PutTest(ctx, t); err != nil {
			log.Fatalf("test %s: %v", t.ID, err)
		}
	}
	log.Printf("loaded %d stimuli, %d items, %d tests", len(b.Stimuli), len(b.Items), len(b.Tests))
}
