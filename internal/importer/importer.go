// Package importer fills a cart from a CSV shopping list.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/ledger"
)

type ProductSource interface {
	Products(ctx context.Context, category string) ([]domain.Product, error)
}

type Cart interface {
	AddItem(p domain.Product, variant string, qty int) (ledger.Line, error)
}

// CSVImporter reads rows with the headers productId, size and quantity.
// size may be empty for non-apparel products; quantity defaults to 1.
type CSVImporter struct {
	reader  *csv.Reader
	catalog ProductSource
	cart    Cart
}

func NewCSVImporter(r io.Reader, catalog ProductSource, cart Cart) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:  csvr,
		catalog: catalog,
		cart:    cart,
	}
}

type csvRow struct {
	line      int
	productID int64
	size      string
	quantity  int
}

// Run adds every row to the cart and returns how many rows were added.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["productid"]; !ok {
		return 0, errors.New("missing productId column")
	}

	products, err := i.catalog.Products(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	added := 0
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return added, fmt.Errorf("read row: %w", err)
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			return added, err
		}
		if row == nil {
			continue
		}

		p, ok := byID[row.productID]
		if !ok {
			return added, fmt.Errorf("line %d: product %d: %w", row.line, row.productID, domain.ErrNotFound)
		}
		if _, err := i.cart.AddItem(p, row.size, row.quantity); err != nil {
			return added, fmt.Errorf("line %d: %w", row.line, err)
		}
		added++
	}

	return added, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	idStr := pick(record, index, "productid")
	if idStr == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("line %d: invalid productId %q", line, idStr)
	}

	qty := 1
	if q := pick(record, index, "quantity"); q != "" {
		qty, err = strconv.Atoi(q)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid quantity %q", line, q)
		}
	}

	return &csvRow{
		line:      line,
		productID: id,
		size:      pick(record, index, "size"),
		quantity:  qty,
	}, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
