package normalizer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type tableRow struct {
	index  int // 1-based sheet row; the header is row 1
	cells  []string
	broken bool
}

// table is a header plus data rows. A nil table means the export was empty.
type table struct {
	header []string
	rows   []tableRow
}

func readCSV(data []byte) (*table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tbl := &table{header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				tbl.rows = append(tbl.rows, tableRow{index: pe.StartLine, broken: true})
				continue
			}
			return nil, err
		}
		if !hasContent(rec) {
			continue
		}
		line, _ := r.FieldPos(0)
		tbl.rows = append(tbl.rows, tableRow{index: line, cells: rec})
	}
	return tbl, nil
}

// readXLSX reads the first worksheet. The first non-blank row is the header.
func readXLSX(data []byte) (*table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	start := -1
	for i, row := range rows {
		if hasContent(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}

	tbl := &table{header: rows[start]}
	for i := start + 1; i < len(rows); i++ {
		if !hasContent(rows[i]) {
			continue
		}
		tbl.rows = append(tbl.rows, tableRow{index: i + 1, cells: rows[i]})
	}
	return tbl, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"01-02-06",
	"1-2-06",
	"01/02/06",
	"2006/01/02",
}

// parseDate accepts the layouts EHR exports use plus Excel serial dates.
// Unreadable values are treated as absent.
func parseDate(raw string) *time.Time {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 1 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
