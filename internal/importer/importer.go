package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// PageInvalidator drops cached product pages after a product changed.
type PageInvalidator interface {
	Invalidate(ctx context.Context, slug string) error
}

// CSVImporter reads catalog CSV exports and inserts/updates products keyed
// by slug. A row with an empty slug and only an image column adds another
// image to the product above it.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	pages       PageInvalidator
}

func NewCSVImporter(r io.Reader, repo ProductWriter, pages PageInvalidator) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{reader: csvr, productRepo: repo, pages: pages}
}

type csvRow struct {
	ID         string
	Slug       string
	Name       string
	Category   string
	Brand      string
	Desc       string
	Price      string
	Stock      string
	IsFeatured string
	Banner     string
	ImageURLs  []string
}

// Run parses CSV rows and upserts products grouped by slug.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	var (
		current  *csvRow
		imported int
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}

		if row.Slug != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = row
			continue
		}

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
	if row.Name == "" || row.Price == "" {
		return fmt.Errorf("invalid product row (missing required fields) for slug %q", row.Slug)
	}
	if row.ID != "" && len(row.ID) != 36 {
		return fmt.Errorf("invalid id for slug %q: %s", row.Slug, row.ID)
	}
	price, err := decimal.NewFromString(row.Price)
	if err != nil || price.IsNegative() {
		return fmt.Errorf("invalid price for slug %q: %s", row.Slug, row.Price)
	}
	stock := 0
	if row.Stock != "" {
		stock, err = strconv.Atoi(row.Stock)
		if err != nil || stock < 0 {
			return fmt.Errorf("invalid stock for slug %q: %s", row.Slug, row.Stock)
		}
	}
	featured, _ := strconv.ParseBool(row.IsFeatured)

	p := domain.Product{
		ID:          row.ID,
		Name:        row.Name,
		Slug:        row.Slug,
		Category:    row.Category,
		Brand:       row.Brand,
		Description: row.Desc,
		Images:      row.ImageURLs,
		Price:       price.StringFixed(2),
		Stock:       stock,
		IsFeatured:  featured,
	}
	if row.Banner != "" {
		banner := row.Banner
		p.Banner = &banner
	}

	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Slug, err)
	}
	if i.pages != nil {
		if err := i.pages.Invalidate(ctx, row.Slug); err != nil {
			return fmt.Errorf("invalidate page %q: %w", row.Slug, err)
		}
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	slug := pick(record, index, "slug")
	imageURL := pick(record, index, "images")
	if slug == "" && imageURL == "" {
		return nil
	}

	row := &csvRow{
		ID:         pick(record, index, "id"),
		Slug:       slug,
		Name:       pick(record, index, "name"),
		Category:   pick(record, index, "category"),
		Brand:      pick(record, index, "brand"),
		Desc:       pick(record, index, "description"),
		Price:      pick(record, index, "price"),
		Stock:      pick(record, index, "stock"),
		IsFeatured: pick(record, index, "isFeatured"),
		Banner:     pick(record, index, "banner"),
	}
	if imageURL != "" {
		row.ImageURLs = []string{imageURL}
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
