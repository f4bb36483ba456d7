package main

import (
	"log"

	"vision-encoder/internal/app"
)

func main() {
	config := app.ParseFlags()

	if err := app.RunApplication(config); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}
