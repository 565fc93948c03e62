// Package importer reads catalog spreadsheets into domain products.
//
// The first row of every sheet is a header. Recognised columns (any order,
// case-insensitive): Name, Category, Price, Color, Size, SKU, Stock,
// Description. Consecutive or scattered rows sharing a product name become
// variants of one product.
package importer

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/orderdesk/internal/domain"
)

type column int

const (
	colName column = iota
	colCategory
	colPrice
	colColor
	colSize
	colSKU
	colStock
	colDescription
)

var headers = map[string]column{
	"name":        colName,
	"product":     colName,
	"category":    colCategory,
	"price":       colPrice,
	"base price":  colPrice,
	"color":       colColor,
	"colour":      colColor,
	"size":        colSize,
	"sku":         colSKU,
	"stock":       colStock,
	"description": colDescription,
}

// RowError points at the offending cell row.
type RowError struct {
	Sheet string
	Row   int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseXLSX reads every sheet of the workbook. Sheets without a Name column
// are skipped. Returned products have no ids or tenant set.
func ParseXLSX(r io.Reader) ([]domain.Product, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var out []domain.Product
	index := map[string]int{}
	for _, sh := range f.GetSheetList() {
		rows, err := f.GetRows(sh)
		if err != nil || len(rows) < 2 {
			continue
		}
		cols := mapHeader(rows[0])
		if _, ok := cols[colName]; !ok {
			continue
		}
		for i, row := range rows[1:] {
			cell := func(c column) string {
				idx, ok := cols[c]
				if !ok || idx >= len(row) {
					return ""
				}
				return strings.TrimSpace(row[idx])
			}
			name := cell(colName)
			if name == "" {
				continue
			}
			rowNum := i + 2
			price, err := parsePrice(cell(colPrice))
			if err != nil {
				return nil, &RowError{Sheet: sh, Row: rowNum, Err: err}
			}
			stock, err := parseStock(cell(colStock))
			if err != nil {
				return nil, &RowError{Sheet: sh, Row: rowNum, Err: err}
			}

			key := strings.ToLower(name)
			pos, seen := index[key]
			if !seen {
				out = append(out, domain.Product{Name: name, BasePrice: price, Active: true})
				pos = len(out) - 1
				index[key] = pos
			}
			p := &out[pos]
			if p.Category == "" {
				p.Category = cell(colCategory)
			}
			if p.Description == "" {
				p.Description = cell(colDescription)
			}
			if p.BasePrice.IsZero() {
				p.BasePrice = price
			}

			v := domain.Variant{Color: cell(colColor), Size: cell(colSize), SKU: cell(colSKU), Stock: stock}
			if v.Color == "" && v.Size == "" && v.SKU == "" {
				continue
			}
			if hasVariant(p.Variants, v) {
				continue
			}
			p.HasVariants = true
			p.Variants = append(p.Variants, v)
		}
	}
	return out, nil
}

func mapHeader(row []string) map[column]int {
	cols := map[column]int{}
	for i, h := range row {
		c, ok := headers[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, dup := cols[c]; !dup {
			cols[c] = i
		}
	}
	return cols
}

func hasVariant(list []domain.Variant, v domain.Variant) bool {
	for _, x := range list {
		if v.SKU != "" && strings.EqualFold(x.SKU, v.SKU) {
			return true
		}
		if strings.EqualFold(x.Color, v.Color) && strings.EqualFold(x.Size, v.Size) && strings.EqualFold(x.SKU, v.SKU) {
			return true
		}
	}
	return false
}

// parsePrice accepts "1250", "1,250.50" and "Rs. 1,250".
func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "Rs."), "Rs")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", s)
	}
	n, ok := domain.NormalizeAmount(d)
	if !ok {
		return decimal.Zero, fmt.Errorf("price %q exceeds %s", s, domain.MaxAmount)
	}
	return n, nil
}

func parseStock(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid stock %q", s)
		}
		n = int(f)
	}
	if n < 0 {
		n = 0
	}
	return &n, nil
}
