package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, bool, error)
}

// Summary counts the products an import created and updated.
type Summary struct {
	Created int
	Updated int
}

func (s Summary) Total() int { return s.Created + s.Updated }

// CSVImporter reads catalog CSV files and inserts/updates products by key.
//
// Columns: id,key,name,description,price,type,material,popularity,images.
// images holds ';' separated URLs. A row with only images continues the previous product.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      zerolog.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger zerolog.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		logger:      logger,
	}
}

type csvRow struct {
	line       int
	ID         string
	Key        string
	Name       string
	Desc       string
	Price      string
	Type       string
	Material   string
	Popularity string
	ImageURLs  []string
}

// Run parses CSV rows and upserts one product per key.
func (i *CSVImporter) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	headers, err := i.reader.Read()
	if err != nil {
		return sum, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["key"]; !ok {
		return sum, errors.New("read headers: missing key column")
	}

	var current *csvRow
	flush := func() error {
		if current == nil {
			return nil
		}
		inserted, err := i.save(ctx, current)
		if err != nil {
			return err
		}
		if inserted {
			sum.Created++
		} else {
			sum.Updated++
		}
		return nil
	}

	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read row %d: %w", line, err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.line = line

		if row.Key != "" {
			if err := flush(); err != nil {
				return sum, err
			}
			current = row
			continue
		}

		// Continuation rows (images) belong to the current product.
		if current != nil {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
		}
	}
	if err := flush(); err != nil {
		return sum, err
	}

	i.logger.Info().Int("created", sum.Created).Int("updated", sum.Updated).Msg("catalog import finished")
	return sum, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) (bool, error) {
	p, err := row.product()
	if err != nil {
		return false, fmt.Errorf("row %d (key %q): %w", row.line, row.Key, err)
	}
	_, inserted, err := i.productRepo.Upsert(ctx, p)
	if err != nil {
		return false, fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	return inserted, nil
}

func (row *csvRow) product() (domain.Product, error) {
	if row.Name == "" || row.Price == "" {
		return domain.Product{}, errors.New("missing required fields")
	}
	if row.ID != "" {
		if _, err := uuid.Parse(row.ID); err != nil {
			return domain.Product{}, fmt.Errorf("invalid id %s", row.ID)
		}
	}
	price, err := decimal.NewFromString(row.Price)
	if err != nil || price.IsNegative() {
		return domain.Product{}, fmt.Errorf("invalid price %q", row.Price)
	}
	var popularity int
	if row.Popularity != "" {
		if popularity, err = strconv.Atoi(row.Popularity); err != nil {
			return domain.Product{}, fmt.Errorf("invalid popularity %q", row.Popularity)
		}
	}
	return domain.Product{
		ID:          row.ID,
		Key:         row.Key,
		Name:        row.Name,
		Description: row.Desc,
		Price:       price.Round(2),
		Type:        row.Type,
		Material:    row.Material,
		Popularity:  popularity,
		Images:      row.ImageURLs,
	}, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	key := pick(record, index, "key")
	images := splitImages(pick(record, index, "images"))
	if key == "" && len(images) == 0 {
		return nil
	}
	return &csvRow{
		ID:         pick(record, index, "id"),
		Key:        key,
		Name:       pick(record, index, "name"),
		Desc:       pick(record, index, "description"),
		Price:      pick(record, index, "price"),
		Type:       pick(record, index, "type"),
		Material:   pick(record, index, "material"),
		Popularity: pick(record, index, "popularity"),
		ImageURLs:  images,
	}
}

func splitImages(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if u := strings.TrimSpace(part); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
