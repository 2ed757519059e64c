// Package catalog implements the product catalog pipeline. It loads tabular
// product data from CSV, renders each row into a retrievable document,
// chunks and embeds the documents, and upserts them into the vector store.
// The Searcher resolves retrieval hits back to their source products so the
// assistant's tools can present structured results.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned by LoadCSV when a required column is absent
// from the CSV header.
var ErrMissingColumn = errors.New("missing required column")

// requiredColumns lists the CSV header names every catalog file must carry.
var requiredColumns = []string{"main_category", "title", "price", "average_rating", "description"}

// Product is one row of the catalog.
type Product struct {
	// ID is the zero-based row index within the source file.
	ID int
	// Category is the product's top-level category (CSV: main_category).
	Category string
	// Title is the product name (CSV: title).
	Title string
	// Price is the listed price. Zero when the source cell is blank.
	Price float64
	// Rating is the average customer rating (CSV: average_rating).
	Rating float64
	// HasRating reports whether the source row carried a rating at all.
	HasRating bool
	// Description is the free-text product description. May be empty.
	Description string
}

// Document renders the product into the fixed retrieval template. Products
// without a rating render an empty rating field rather than "0".
func (p Product) Document() string {
	rating := ""
	if p.HasRating {
		rating = strconv.FormatFloat(p.Rating, 'g', -1, 64)
	}
	return fmt.Sprintf("Category: %s | Product: %s | Rating: %s stars | Description: %s",
		p.Category, p.Title, rating, p.Description)
}

// LoadCSV parses catalog rows from r. The header row is required and keys
// the columns, so column order does not matter and extra columns are
// ignored. A missing required column is a fatal error naming the column.
// Blank rating or description cells are tolerated per row.
func LoadCSV(r io.Reader) ([]Product, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("catalog: empty CSV: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("catalog: %w: %q", ErrMissingColumn, name)
		}
	}

	var products []Product
	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read row %d: %w", row, err)
		}

		p := Product{
			ID:          row,
			Category:    strings.TrimSpace(record[cols["main_category"]]),
			Title:       strings.TrimSpace(record[cols["title"]]),
			Description: strings.TrimSpace(record[cols["description"]]),
		}

		if raw := strings.TrimSpace(record[cols["price"]]); raw != "" {
			price, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("catalog: row %d: invalid price %q: %w", row, raw, err)
			}
			p.Price = price
		}

		if raw := strings.TrimSpace(record[cols["average_rating"]]); raw != "" {
			rating, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("catalog: row %d: invalid rating %q: %w", row, raw, err)
			}
			p.Rating = rating
			p.HasRating = true
		}

		products = append(products, p)
	}

	return products, nil
}

// LoadCSVFile opens path and loads its catalog rows via LoadCSV.
func LoadCSVFile(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}
