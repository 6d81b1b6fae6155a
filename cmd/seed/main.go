package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/roomservice/api/internal/config"
	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/service"
)

// legacyItem is one entry of an items.json export: [{"id": "...", "name": "..."}].
type legacyItem struct {
	ID   json.RawMessage `json:"id"`
	Name string          `json:"name"`
}

func main() {
	_ = godotenv.Load()

	file := flag.String("file", "", "items.json export or a text file with one item name per line")
	skipExisting := flag.Bool("skip-existing", true, "skip names already in the catalog")
	flag.Parse()

	if *file == "" {
		*file = os.Getenv("SEED_FILE")
	}
	if *file == "" {
		log.Fatal("usage: seed -file items.json")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Unable to read %s: %v", *file, err)
	}
	names, err := parseItemsFile(filepath.Ext(*file), raw)
	if err != nil {
		log.Fatalf("Unable to parse %s: %v", *file, err)
	}

	cfg := config.Load()
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	queries := database.New(pool)
	catalog := service.NewCatalogService(pool, queries, func(db database.DBTX) service.CatalogStore {
		return database.New(db)
	})

	if *skipExisting {
		existing, err := catalog.ListItems(ctx)
		if err != nil {
			log.Fatalf("Failed to list items: %v", err)
		}
		names = withoutExisting(names, existing)
	}
	if len(names) == 0 {
		log.Println("Nothing to import")
		return
	}

	result, err := catalog.BulkAdd(ctx, strings.Join(names, "\n"))
	if err != nil {
		log.Fatalf("Failed to import items: %v", err)
	}
	log.Printf("Seed completed: %d items created", result.Created)
}

// parseItemsFile returns item names in file order. .json files are read as
// an items.json export; anything else as one name per line.
func parseItemsFile(ext string, raw []byte) ([]string, error) {
	if strings.EqualFold(ext, ".json") {
		var items []legacyItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode items json: %w", err)
		}
		names := make([]string, 0, len(items))
		for _, it := range items {
			if n := strings.TrimSpace(it.Name); n != "" {
				names = append(names, n)
			}
		}
		return names, nil
	}
	names, _ := service.ParseBulkNames(string(raw))
	return names, nil
}

func withoutExisting(names []string, existing []database.Item) []string {
	seen := make(map[string]bool, len(existing))
	for _, it := range existing {
		seen[strings.ToLower(it.Name)] = true
	}
	out := names[:0]
	for _, n := range names {
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
