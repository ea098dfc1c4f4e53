package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestEHRFromName(t *testing.T) {
	tests := []struct {
		name string
		ehr  string
		ok   bool
	}{
		{"RPA Mastersheet Nov 07 - Axxess.csv", "Axxess", true},
		{"RPA Mastersheet - Kinnser - HCHB.xlsx", "HCHB", true},
		{"RPA Mastersheet Axxess.csv", "", false},
		{"notes - Axxess.txt", "", false},
		{"RPA Mastersheet - .csv", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ehr, ok := ehrFromName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ehr, ehr)
		})
	}
}

func TestBuildDirectory(t *testing.T) {
	dir := t.TempDir()
	csvBody := "\xEF\xBB\xBFCredential Name,Login\nLunaVista,x\n  Bright Care ,y\n,z\nLunaVista,w\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "RPA Mastersheet Nov 07 - Axxess.csv"), []byte(csvBody), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "RPA Mastersheet Nov 07 - Empty.csv"), []byte("Name\nfoo\n"), 0o644))

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Id", "Credential Name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, "Zenith Home"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{2, "Acme Health"}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "RPA Mastersheet Nov 07 - HCHB.xlsx")))
	require.NoError(t, f.Close())

	directory, err := buildDirectory(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"Axxess": {"Bright Care", "LunaVista"},
		"HCHB":   {"Acme Health", "Zenith Home"},
	}, directory)
}

func TestRun_WritesJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sheet - Axxess.csv"), []byte("Credential Name\nLunaVista\n"), 0o644))
	out := filepath.Join(t.TempDir(), "data", "agencies.json")

	require.NoError(t, run([]string{"-dir", dir, "-out", out}, zerolog.Nop()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got map[string][]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []string{"LunaVista"}, got["Axxess"])
}

func TestBuildDirectory_MissingDir(t *testing.T) {
	_, err := buildDirectory(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	assert.Error(t, err)
}
