package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrFareDataMissing marks a missing fare data file at startup. The process
// cannot do useful work without the tables, so callers treat it as fatal.
var ErrFareDataMissing = errors.New("fare data file missing")

// TrainRoute is one row of the train fare table.
type TrainRoute struct {
	Departure   string  `json:"departure"`
	Destination string  `json:"destination"`
	Fare        float64 `json:"fare"`
}

// FareTable holds the static fare reference data loaded once at startup.
type FareTable struct {
	TrainFares []TrainRoute
	FixedFares map[string]float64
}

// LoadFareTable reads train_fares.json and fixed_fares.json from dataDir.
func LoadFareTable(dataDir string) (*FareTable, error) {
	trainPath := filepath.Join(dataDir, "train_fares.json")
	fixedPath := filepath.Join(dataDir, "fixed_fares.json")

	for _, path := range []string{trainPath, fixedPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFareDataMissing, path)
		}
	}

	trainRaw, err := os.ReadFile(trainPath)
	if err != nil {
		return nil, fmt.Errorf("read train fares: %w", err)
	}
	var trainData struct {
		Routes []TrainRoute `json:"routes"`
	}
	if err := json.Unmarshal(trainRaw, &trainData); err != nil {
		return nil, fmt.Errorf("parse %s: %w", trainPath, err)
	}

	fixedRaw, err := os.ReadFile(fixedPath)
	if err != nil {
		return nil, fmt.Errorf("read fixed fares: %w", err)
	}
	fixed := map[string]float64{}
	if err := json.Unmarshal(fixedRaw, &fixed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", fixedPath, err)
	}
	for _, mode := range []string{"bus", "taxi", "airplane"} {
		if _, ok := fixed[mode]; !ok {
			return nil, fmt.Errorf("parse %s: missing fixed fare for %q", fixedPath, mode)
		}
	}

	return &FareTable{TrainFares: trainData.Routes, FixedFares: fixed}, nil
}

// Lookup returns the fare and a description of how it was determined.
// Train routes match in either direction; place names are case-insensitive.
func (t *FareTable) Lookup(departure, destination, mode string) (float64, string, error) {
	if mode == "train" {
		from := strings.ToLower(departure)
		to := strings.ToLower(destination)
		for _, route := range t.TrainFares {
			a := strings.ToLower(route.Departure)
			b := strings.ToLower(route.Destination)
			if (a == from && b == to) || (a == to && b == from) {
				return route.Fare, fmt.Sprintf("train fare table: %s -> %s", departure, destination), nil
			}
		}
		return 0, "", fmt.Errorf("no train fare found for %s -> %s", departure, destination)
	}
	fare, ok := t.FixedFares[mode]
	if !ok {
		return 0, "", fmt.Errorf("no fixed fare configured for %s", mode)
	}
	return fare, fmt.Sprintf("fixed %s fare", mode), nil
}

// FareTool computes the fare for one route segment.
type FareTool struct {
	table *FareTable
}

// NewFareTool creates the calculate_fare tool backed by table.
func NewFareTool(table *FareTable) *FareTool {
	return &FareTool{table: table}
}

func (t *FareTool) Name() string { return "calculate_fare" }

func (t *FareTool) Description() string {
	return "Calculate the fare for one route segment. " +
		"Train fares come from the fare table; bus, taxi and airplane use fixed fares."
}

func (t *FareTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"departure":      map[string]any{"type": "string", "description": "Departure station or place"},
			"destination":    map[string]any{"type": "string", "description": "Destination station or place"},
			"transport_type": map[string]any{"type": "string", "description": "One of train, bus, taxi, airplane"},
			"date":           map[string]any{"type": "string", "description": "Travel date, YYYY-MM-DD"},
		},
		"required": []string{"departure", "destination", "transport_type", "date"},
	}
}

func (t *FareTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	departure, err := stringArg(params, "departure")
	if err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	destination, err := stringArg(params, "destination")
	if err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	mode, err := transportArg(params, "transport_type")
	if err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if _, err := dateArg(params, "date"); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	fare, method, err := t.table.Lookup(departure, destination, mode)
	if err != nil {
		return "", err
	}

	out, _ := json.Marshal(map[string]any{
		"fare":               fare,
		"calculation_method": method,
	})
	return string(out), nil
}
