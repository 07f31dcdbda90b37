package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"mqtt_dashboard/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Readings"

// leadingColumns come first in exports; other fields follow in name order.
var leadingColumns = []string{
	models.FieldReceivedAt,
	models.FieldDevice,
	models.FieldSensor,
	models.FieldSensorValue,
	models.FieldTimestamp,
}

// ExportReadings renders readings as an XLSX workbook, one row per reading.
func ExportReadings(readings []models.Reading) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	columns := exportColumns(readings)
	for i, name := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, name); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if len(columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(columns))
		if err := f.SetColWidth(exportSheet, "A", last, 20); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, r := range readings {
		row := rowIdx + 2
		for colIdx, name := range columns {
			v, ok := r[name]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, cellValue(v)); err != nil {
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// exportColumns returns the leading columns plus every other field seen, sorted.
func exportColumns(readings []models.Reading) []string {
	seen := make(map[string]bool, len(leadingColumns))
	cols := append([]string(nil), leadingColumns...)
	for _, c := range cols {
		seen[c] = true
	}
	var extra []string
	for _, r := range readings {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// cellValue keeps scalars and encodes nested values as JSON text.
func cellValue(v any) any {
	switch n := v.(type) {
	case string, bool, float64, float32, int, int64, int32, uint, uint64:
		return v
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	b, err := wire.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
