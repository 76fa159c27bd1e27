package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/radar"
	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

var sampleSignals = []string{
	`Acme Robotics opens a second factory for warehouse robots.
The company says demand from logistics firms doubled this year and it now
competes directly with Beta Automation in the European market.`,
	`Beta Automation announces a partnership with Gamma Chips.
The new controller board uses Gamma's low power AI accelerator and is part of
a broader push towards edge inference in industrial automation.`,
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := helper.NewTestDatabaseConfiguration(dbPort)

	r, err := radar.NewRadar(dbConfig, model.DefaultRadarConfig(), nil)
	if err != nil {
		log.Fatalf("Failed to create radar: %v", err)
	}
	defer r.Close()

	// Local embeddings and NER based extraction, no API key needed
	if err := r.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Ingesting signals...")
	for _, text := range sampleSignals {
		result, err := r.IngestText(ctx, text)
		if err != nil {
			log.Fatalf("Failed to ingest signal: %v", err)
		}
		fmt.Printf("  %s: %d new entities, %d reused\n", result.Signal.Title, result.EntitiesCreated, result.EntitiesReused)
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	fmt.Printf("\nGraph: %d signals, %d entities, %d connections, %d trends\n", stats.Signals, stats.Entities, stats.Connections, stats.Trends)

	queryText := "Who builds warehouse robots?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	signals, err := r.Retrieve(ctx, queryText, 2)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}

	for i, s := range signals {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Distance: %.4f\n", s.Distance)
		fmt.Printf("Title: %s\n", s.Title)
	}

	entities, err := r.SearchEntities(ctx, "industrial automation", 3)
	if err != nil {
		log.Fatalf("Failed to search entities: %v", err)
	}
	fmt.Println("\nClosest entities:")
	for _, e := range entities {
		fmt.Printf("  %s (%s)\n", e.Name, e.Type)
	}

	fmt.Println("\nBasic example completed successfully!")
}
