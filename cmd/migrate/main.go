package main

import (
	"context"
	"log"
	"os"
	"time"

	"study-assistant-be/internal/model"
	"study-assistant-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		color.Yellow("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Relational schema
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Step 1: Setting up extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		color.Yellow("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	color.Cyan("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.User{},
		&model.Note{},
		&model.Transcript{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			log.Fatalf("Error: AutoMigrate failed for %T: %v", m, err)
		}
		color.Green("  migrated %T", m)
	}

	// 3. Document store indexes
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		color.Yellow("Info: MONGO_URI is not set, skipping chat indexes")
		color.Green("Migration completed")
		return
	}
	mongoDBName := os.Getenv("MONGO_DATABASE")
	if mongoDBName == "" {
		mongoDBName = "study_assistant"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, mdb, err := database.NewMongoDatabase(ctx, mongoURI, mongoDBName)
	if err != nil {
		log.Fatal("Error: Failed to connect to MongoDB:", err)
	}
	defer client.Disconnect(context.Background())

	color.Cyan("Step 3: Ensuring chat indexes...")
	if err := database.EnsureChatIndexes(ctx, mdb); err != nil {
		log.Fatal("Error: Failed to create chat indexes:", err)
	}

	color.Green("Migration completed")
}
