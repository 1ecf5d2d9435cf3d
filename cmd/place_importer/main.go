// place_importer bulk-loads a catalog export (places.json) into the places
// table. Rows are upserted by id, so re-running with a newer export is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	gacha "github.com/trippop/gacha-reward-server"
	"github.com/trippop/gacha-reward-server/catalog"
)

func main() {
	filePath := flag.String("file", "places.json", "Path to the catalog places export")
	deactivateMissing := flag.Bool("deactivate-missing", false, "Mark places absent from the export as inactive")
	flag.Parse()

	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	if err := run(*filePath, *deactivateMissing); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(filePath string, deactivateMissing bool) error {
	ctx := context.Background()
	pool, err := gacha.GetPool(ctx)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if pool == nil {
		return fmt.Errorf("DATABASE_URL is not set; cannot connect to DB")
	}
	if err := gacha.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	var places []catalog.Place
	if err := json.Unmarshal(data, &places); err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}
	if len(places) == 0 {
		return fmt.Errorf("%s contains no places", filePath)
	}

	imported, err := upsertPlaces(ctx, pool, places)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d of %d places from %s\n", imported, len(places), filePath)

	if deactivateMissing {
		ids := make([]int64, len(places))
		for i, p := range places {
			ids[i] = p.ID
		}
		tag, err := pool.Exec(ctx,
			"UPDATE places SET active = false WHERE active AND NOT (id = ANY($1))", ids)
		if err != nil {
			return fmt.Errorf("deactivate missing: %w", err)
		}
		if n := tag.RowsAffected(); n > 0 {
			fmt.Printf("Deactivated %d places absent from the export\n", n)
		}
	}
	return nil
}

func upsertPlaces(ctx context.Context, pool *pgxpool.Pool, places []catalog.Place) (int, error) {
	const upsert = `
		INSERT INTO places (id, name, country, city, district, category, rating, lat, lng, photo, description, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			city = EXCLUDED.city,
			district = EXCLUDED.district,
			category = EXCLUDED.category,
			rating = EXCLUDED.rating,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			photo = EXCLUDED.photo,
			description = EXCLUDED.description,
			active = EXCLUDED.active`
	imported := 0
	for _, p := range places {
		if p.ID <= 0 || p.Name == "" || p.Country == "" || p.City == "" {
			fmt.Fprintf(os.Stderr, "skipping invalid place %+v\n", p)
			continue
		}
		if _, err := pool.Exec(ctx, upsert,
			p.ID, p.Name, p.Country, p.City, p.District, p.Category,
			p.Rating, p.Lat, p.Lng, p.Photo, p.Description, p.Active); err != nil {
			return imported, fmt.Errorf("upsert place %d: %w", p.ID, err)
		}
		imported++
	}
	// Keep the sequence ahead of explicit ids so catalog-side inserts don't collide.
	if _, err := pool.Exec(ctx,
		"SELECT setval('places_id_seq', (SELECT MAX(id) FROM places))"); err != nil {
		return imported, fmt.Errorf("advance places sequence: %w", err)
	}
	return imported, nil
}
