// Seeds the item catalog that matches draw their secret theme from.
// With no arguments a small starter catalog is written, otherwise the
// argument is a JSON file holding an array of items.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/itsu-games/itsu/internal/database"
	itemDb "github.com/itsu-games/itsu/internal/database/item/database"
	"github.com/itsu-games/itsu/internal/database/item/model"
	"github.com/itsu-games/itsu/internal/logging"
	"github.com/itsu-games/itsu/internal/shutdown"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

var starterItems = []model.Item{
	{Name: "Lighthouse", Hints: []string{"Guides through the dark", "Stands alone by the water"}, IsActive: true},
	{Name: "Compass", Hints: []string{"Always points somewhere", "A traveller trusts it"}, IsActive: true},
	{Name: "Telescope", Hints: []string{"Brings the far close", "Works best at night"}, IsActive: true},
	{Name: "Hourglass", Hints: []string{"Runs out quietly", "Turn it to start over"}, IsActive: true},
	{Name: "Campfire", Hints: []string{"Gathers people around", "Dies without attention"}, IsActive: true},
}

func main() {
	ctx, done := shutdown.New()
	defer done()
	logger := logging.FromContext(ctx)

	config := database.Config{}
	if err := envconfig.Process("", &config); err != nil {
		logger.Fatalf("processing the config: %v", err)
	}

	db, err := database.NewFromEnv(ctx, &config)
	if err != nil {
		logger.Fatalf("new database from env: %v", err)
	}
	defer db.Close(ctx)

	items := starterItems
	if len(os.Args) > 1 {
		bytes, err := os.ReadFile(os.Args[1])
		if err != nil {
			logger.Fatalf("read catalog file: %v", err)
		}
		items = nil
		if err := json.Unmarshal(bytes, &items); err != nil {
			logger.Fatalf("parse catalog file: %v", err)
		}
	}

	store := itemDb.New(db)
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if err := store.Store(it); err != nil {
			logger.Fatalf("store item %q: %v", it.Name, err)
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "seeded %d items\n", len(items))
}
