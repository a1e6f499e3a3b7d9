package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	keywords, err := LoadKeywords(cfg.KeywordsPath)
	if err != nil {
		log.Fatalf("Failed to load keyword dictionary: %v", err)
	}

	// Seed the scorecard on first run.
	if _, err := LoadScorecard(db); err != nil {
		log.Fatalf("Failed to load scorecard: %v", err)
	}

	sweeper := StartStatusSweeper(SQLRoomStore{DB: db}, cfg.Thresholds(),
		cfg.SweepInterval())
	defer sweeper.Stop()

	app := fiber.New()
	app.Use(logger.New())
	NewHandler(db, cfg, keywords).Routes(app)

	log.Printf("Starting Support QA Simulator on %s", cfg.ListenAddr)
	log.Fatal(app.Listen(cfg.ListenAddr))
}
