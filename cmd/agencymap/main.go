// Command agencymap builds the EHR to agency directory used by dashboards
// from RPA mastersheet exports.
// Usage: go run ./cmd/agencymap -dir "RPA AGENCIES" -out agencies.json
// Mastersheets are named "<anything> - <EHR>.csv" or ".xlsx"; agencies are
// read from the "Credential Name" column.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const agencyColumn = "credential name"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(os.Args[1:], log); err != nil {
		log.Fatal().Err(err).Msg("agencymap failed")
	}
}

func run(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("agencymap", flag.ContinueOnError)
	dir := fs.String("dir", "RPA AGENCIES", "folder holding the mastersheets")
	out := fs.String("out", "ehr_agencies.json", "output JSON path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	directory, err := buildDirectory(*dir, log)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(directory, "", "  ")
	if err != nil {
		return fmt.Errorf("encode directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Int("ehrs", len(directory)).Str("out", *out).Msg("agency directory written")
	return nil
}

// buildDirectory maps each EHR to its sorted, de-duplicated agencies.
// Unreadable sheets are logged and skipped.
func buildDirectory(dir string, log zerolog.Logger) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read mastersheet dir: %w", err)
	}

	directory := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ehr, ok := ehrFromName(e.Name())
		if !ok {
			continue
		}
		rows, err := readSheet(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("skipping mastersheet")
			continue
		}
		names := agencies(rows)
		if len(names) == 0 {
			continue
		}
		merged := append(directory[ehr], names...)
		slices.Sort(merged)
		directory[ehr] = slices.Compact(merged)
	}
	return directory, nil
}

// ehrFromName returns the text after the last " - " of a mastersheet name.
func ehrFromName(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".xlsx" {
		return "", false
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndex(base, " - ")
	if idx < 0 {
		return "", false
	}
	ehr := strings.TrimSpace(base[idx+3:])
	return ehr, ehr != ""
}

func readSheet(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer func() { _ = f.Close() }()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		return f.GetRows(sheets[0])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

// agencies reads the credential name column below the header row.
func agencies(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	col := slices.IndexFunc(rows[0], func(h string) bool {
		return strings.EqualFold(strings.TrimSpace(h), agencyColumn)
	})
	if col < 0 {
		return nil
	}
	var out []string
	for _, row := range rows[1:] {
		if col < len(row) {
			if name := strings.TrimSpace(row[col]); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
