//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"

	"marketplace/internal/config"

	"github.com/jackc/pgx/v5"
)

func main() {
	cfg, err := config.LoadTool()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	var dbName string
	var products int
	err = conn.QueryRow(ctx, "SELECT current_database(), (SELECT count(*) FROM products)").Scan(&dbName, &products)
	if err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connected to %s (%d products)\n", dbName, products)
}
