package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront-api/internal/domain"
	"storefront-api/internal/money"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryEnsurer interface {
	EnsureByName(ctx context.Context, name string) (*domain.Category, error)
}

// CSVImporter reads catalog CSV files and inserts/updates products by name.
//
// Expected header: name,description,price,stock,category,images. Images are
// separated by ";". A row with an empty name and only images continues the
// previous product.
type CSVImporter struct {
	reader     *csv.Reader
	products   ProductWriter
	categories CategoryEnsurer
	categoryID map[string]string
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryEnsurer) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:     csvr,
		products:   products,
		categories: categories,
		categoryID: make(map[string]string),
	}
}

type csvRow struct {
	Line      int
	Name      string
	Desc      string
	Price     string
	Stock     string
	Category  string
	ImageURLs []string
}

// Run parses CSV rows and upserts products. It stops at the first invalid row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"name", "price", "stock", "category"} {
		if _, ok := index[required]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	var (
		current  *csvRow
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.Line = line

		if row.Name != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

		// Continuation rows (images) belong to the current product.
		if current != nil && len(row.ImageURLs) > 0 {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Price == "" || row.Stock == "" || row.Category == "" {
		return fmt.Errorf("row %d: product %q is missing price, stock or category", row.Line, row.Name)
	}
	cents, err := money.ParseCents(row.Price)
	if err != nil {
		return fmt.Errorf("row %d: price: %w", row.Line, err)
	}
	stock, err := strconv.Atoi(row.Stock)
	if err != nil || stock < 0 {
		return fmt.Errorf("row %d: stock must be a non-negative integer, got %q", row.Line, row.Stock)
	}
	categoryID, err := i.ensureCategory(ctx, row.Category)
	if err != nil {
		return fmt.Errorf("row %d: category %q: %w", row.Line, row.Category, err)
	}

	images := row.ImageURLs
	if images == nil {
		images = []string{}
	}
	_, err = i.products.Upsert(ctx, domain.Product{
		Name:        row.Name,
		Description: row.Desc,
		PriceCents:  cents,
		Stock:       stock,
		CategoryID:  categoryID,
		Images:      images,
	})
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Name, err)
	}
	return nil
}

func (i *CSVImporter) ensureCategory(ctx context.Context, name string) (string, error) {
	if id, ok := i.categoryID[name]; ok {
		return id, nil
	}
	c, err := i.categories.EnsureByName(ctx, name)
	if err != nil {
		return "", err
	}
	i.categoryID[name] = c.ID
	return c.ID, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	row := &csvRow{
		Name:     pick(record, index, "name"),
		Desc:     pick(record, index, "description"),
		Price:    pick(record, index, "price"),
		Stock:    pick(record, index, "stock"),
		Category: pick(record, index, "category"),
	}
	for _, u := range strings.Split(pick(record, index, "images"), ";") {
		if u = strings.TrimSpace(u); u != "" {
			row.ImageURLs = append(row.ImageURLs, u)
		}
	}
	if row.Name == "" && len(row.ImageURLs) == 0 {
		return nil
	}
	return row
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
