package main

import (
	"cmp"
	"encoding/json/v2"
	"fmt"
	"log"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/db"
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	productCount := 0
	inStock := 0
	onSale := 0
	brands := make(map[string]int)

	err = scan(db, "product:", func(key string, val []byte) error {
		var p domain.Product
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}

		productCount++
		if p.Stock.InStock {
			inStock++
		}
		if p.Price.OnSale() {
			onSale++
		}
		if p.Brand != "" {
			brands[p.Brand]++
		}

		// Show the first few products
		if productCount <= 3 {
			fmt.Printf("Product: %s\n", p.Title)
			fmt.Printf("  ID: %s\n", p.ID)
			fmt.Printf("  URL: %s\n", p.URL)
			fmt.Printf("  Section: %s\n", strings.Join(p.Section, " > "))
			fmt.Printf("  Price: %.2f (original %.2f) %s\n", p.Price.Current, p.Price.Original, p.Price.SaleTag)
			fmt.Printf("  In stock: %v (%d)\n", p.Stock.InStock, p.Stock.Count)
			fmt.Printf("  Metadata keys: %d\n", len(p.Metadata))
			fmt.Println()
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating products: %v", err)
	}

	var runs []domain.Run
	err = scan(db, "run:", func(key string, val []byte) error {
		var r domain.Run
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		runs = append(runs, r)
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating runs: %v", err)
	}
	slices.SortFunc(runs, func(a, b domain.Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	fmt.Println("=== Runs ===")
	for i, r := range runs {
		if i == 5 {
			fmt.Printf("  ... and %d more runs\n", len(runs)-5)
			break
		}
		fmt.Printf("  %s  %s  %-8s products=%d failures=%d rate_limited=%d (%s)\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Reason,
			r.Products, r.Failures, r.RateLimited, r.Duration().Round(time.Second))
	}
	fmt.Println()

	fmt.Println("=== Summary ===")
	fmt.Printf("Total products: %d\n", productCount)
	fmt.Printf("In stock: %d\n", inStock)
	fmt.Printf("On sale: %d\n", onSale)
	fmt.Printf("Distinct brands: %d\n", len(brands))

	top := slices.SortedFunc(maps.Keys(brands), func(a, b string) int {
		return cmp.Or(cmp.Compare(brands[b], brands[a]), strings.Compare(a, b))
	})
	for i, b := range top {
		if i == 5 {
			break
		}
		fmt.Printf("  %-30s %d\n", b, brands[b])
	}
	fmt.Printf("Total runs: %d\n", len(runs))
}

// scan calls fn for every primary record under prefix, skipping index keys.
func scan(db *badger.DB, prefix string, fn func(key string, val []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if strings.HasPrefix(key, prefix+"idx:") {
				continue
			}

			err := item.Value(func(val []byte) error {
				return fn(key, val)
			})
			if err != nil {
				log.Printf("Error reading %s: %v", key, err)
			}
		}
		return nil
	})
}
