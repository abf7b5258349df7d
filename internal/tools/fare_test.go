package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFareData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	train := `{"routes":[
		{"departure":"Ueno","destination":"Toyosu","fare":210},
		{"departure":"Shinagawa","destination":"Haneda Airport","fare":300}
	]}`
	fixed := `{"bus":220,"taxi":1500,"airplane":25000}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train_fares.json"), []byte(train), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixed_fares.json"), []byte(fixed), 0o644))
	return dir
}

func TestLoadFareTableMissingFile(t *testing.T) {
	_, err := LoadFareTable(t.TempDir())
	require.ErrorIs(t, err, ErrFareDataMissing)
}

func TestLoadFareTableRejectsIncompleteFixedFares(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train_fares.json"), []byte(`{"routes":[]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixed_fares.json"), []byte(`{"bus":220}`), 0o644))

	_, err := LoadFareTable(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "taxi")
}

func TestFareToolTrainLookup(t *testing.T) {
	table, err := LoadFareTable(writeFareData(t))
	require.NoError(t, err)
	tool := NewFareTool(table)

	out, err := tool.Execute(context.Background(), map[string]any{
		"departure":      "Ueno",
		"destination":    "Toyosu",
		"transport_type": "train",
		"date":           "2026-08-20",
	})
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, float64(210), result["fare"])
	assert.Contains(t, result["calculation_method"], "Ueno")
}

func TestFareToolTrainLookupReverseDirection(t *testing.T) {
	table, err := LoadFareTable(writeFareData(t))
	require.NoError(t, err)

	fare, _, err := table.Lookup("toyosu", "ueno", "train")
	require.NoError(t, err)
	assert.Equal(t, float64(210), fare)
}

func TestFareToolFixedFare(t *testing.T) {
	table, err := LoadFareTable(writeFareData(t))
	require.NoError(t, err)
	tool := NewFareTool(table)

	out, err := tool.Execute(context.Background(), map[string]any{
		"departure":      "Office",
		"destination":    "Client site",
		"transport_type": "タクシー",
		"date":           "2026-08-20",
	})
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, float64(1500), result["fare"])
}

func TestFareToolRouteNotFound(t *testing.T) {
	table, err := LoadFareTable(writeFareData(t))
	require.NoError(t, err)
	tool := NewFareTool(table)

	_, err = tool.Execute(context.Background(), map[string]any{
		"departure":      "Nowhere",
		"destination":    "Toyosu",
		"transport_type": "train",
		"date":           "2026-08-20",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")
}

func TestFareToolValidation(t *testing.T) {
	table, err := LoadFareTable(writeFareData(t))
	require.NoError(t, err)
	tool := NewFareTool(table)

	cases := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"missing departure", map[string]any{
			"destination": "Toyosu", "transport_type": "train", "date": "2026-08-20",
		}, "departure"},
		{"bad transport", map[string]any{
			"departure": "Ueno", "destination": "Toyosu", "transport_type": "boat", "date": "2026-08-20",
		}, "transport_type"},
		{"bad date", map[string]any{
			"departure": "Ueno", "destination": "Toyosu", "transport_type": "train", "date": "20/08/2026",
		}, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tool.Execute(context.Background(), tc.params)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
