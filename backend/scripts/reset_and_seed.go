package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"kindred/backend/internal/graph"
	"kindred/backend/pkg/config"
	"kindred/backend/pkg/logger"
)

func main() {
	skipConfirm := flag.Bool("y", false, "Skip confirmation prompt")
	rebuildSchema := flag.Bool("rebuild-schema", false, "Drop and recreate the Person constraints and indexes")
	noSeed := flag.Bool("no-seed", false, "Only delete, do not seed the sample family")
	flag.Parse()

	// Initialize logger
	if err := logger.Init(logger.Options{Env: "development", Level: os.Getenv("LOG_LEVEL")}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database reset and seed...")

	// Warning prompt
	if !*skipConfirm {
		log.Warn("WARNING: This will DELETE ALL PEOPLE from Neo4j!")
		log.Warn("This action cannot be undone.")
		// Use fmt.Print for user input prompt (needs to go to stdout)
		fmt.Print("Are you sure you want to continue? (yes/no): ")
		var response string
		fmt.Scanln(&response)
		if response != "yes" && response != "y" {
			log.Info("Aborted.")
			os.Exit(0)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	store, err := graph.NewNeo4jStore(graph.StoreConfig{
		URI:       cfg.Neo4jURI,
		Username:  cfg.Neo4jUser,
		Password:  cfg.Neo4jPassword,
		Database:  cfg.Neo4jDatabase,
		TxTimeout: cfg.StoreTxTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create Neo4j store", zap.Error(err))
	}
	defer store.Close(context.Background())

	ctx := context.Background()
	schema := graph.NewSchemaManager(store, log)

	// Step 1: Schema
	if *rebuildSchema {
		log.Info("Step 1: Dropping Person constraints and indexes...")
		if err := schema.DropSchema(ctx); err != nil {
			log.Fatal("Failed to drop schema", zap.Error(err))
		}
	}
	log.Info("Step 1: Applying Person schema...")
	if err := schema.ApplySchema(ctx); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Step 2: Delete all people
	repo := graph.NewRepository(store, log)
	log.Info("Step 2: Deleting all people...")
	deleted, err := repo.DeleteAll(ctx)
	if err != nil {
		log.Fatal("Failed to delete all people", zap.Error(err))
	}
	log.Info("All people deleted", zap.Int("count", deleted))

	if *noSeed {
		log.Info("Reset complete")
		return
	}

	// Step 3: Seed the sample family
	log.Info("Step 3: Seeding sample family...")
	if err := seedFamily(ctx, repo); err != nil {
		log.Fatal("Failed to seed family", zap.Error(err))
	}

	// Verify creation
	people, err := repo.QueryAll(ctx)
	if err != nil {
		log.Fatal("Failed to list people", zap.Error(err))
	}
	for _, p := range people {
		log.Info("Seeded person", zap.String("name", p.Name), zap.String("uid", p.UID))
	}

	log.Info("Database reset and seed completed successfully!", zap.Int("people", len(people)))
}

// seedFamily creates three generations: two partnered grandparents, their two
// children, and one grandchild.
func seedFamily(ctx context.Context, repo *graph.Repository) error {
	if _, err := repo.CreatePeople(ctx, []graph.Person{
		{Name: "Alice", Gender: "female", Email: "alice@example.com"},
		{Name: "Bob", Gender: "male"},
	}); err != nil {
		return err
	}

	if _, err := repo.AddPartners(ctx, "Alice", []graph.Person{{Name: "Bob"}}); err != nil {
		return err
	}

	family := []graph.Person{
		{Name: "Carol", Gender: "female"},
		{Name: "Dan", Gender: "male"},
	}
	if _, err := repo.AddChildren(ctx, "Alice", family); err != nil {
		return err
	}
	if _, err := repo.AddChildren(ctx, "Bob", family); err != nil {
		return err
	}

	if _, err := repo.AddPartners(ctx, "Carol", []graph.Person{{Name: "Erin", Gender: "female"}}); err != nil {
		return err
	}
	if _, err := repo.AddChildren(ctx, "Carol", []graph.Person{{Name: "Finn", Gender: "male"}}); err != nil {
		return err
	}
	if _, err := repo.AddChildren(ctx, "Erin", []graph.Person{{Name: "Finn"}}); err != nil {
		return err
	}
	return nil
}
