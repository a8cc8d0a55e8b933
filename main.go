package main

import (
	"github.com/joho/godotenv"

	"bhakti-shorts-pipeline/cmd"
)

func main() {
	// Load .env (local dev only; CI uses Secrets)
	_ = godotenv.Load()

	cmd.Execute()
}
