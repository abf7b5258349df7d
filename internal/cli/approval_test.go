package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keihibot/keihibot/internal/approval"
)

func decideWith(t *testing.T, input string) (approval.Decision, string) {
	t.Helper()
	var out bytes.Buffer
	decide := consoleDecider(bufio.NewReader(strings.NewReader(input)), &out)
	d, err := decide(context.Background(), "travel_report_generator",
		map[string]any{"routes": "2 segments", "amount": 4200})
	require.NoError(t, err)
	return d, out.String()
}

func TestConsoleDeciderApprove(t *testing.T) {
	d, out := decideWith(t, "1\n")
	assert.Equal(t, approval.Proceed, d.Kind)
	assert.Contains(t, out, "travel_report_generator")
	assert.Contains(t, out, "amount: 4200")
}

func TestConsoleDeciderReviseCollectsFeedback(t *testing.T) {
	d, _ := decideWith(t, "2\nfix the date\n")
	assert.Equal(t, approval.Revise, d.Kind)
	assert.Equal(t, "fix the date", d.Feedback)
}

func TestConsoleDeciderCancel(t *testing.T) {
	d, _ := decideWith(t, "3\n")
	assert.Equal(t, approval.Cancel, d.Kind)
}

func TestConsoleDeciderRepromptsOnInvalidInput(t *testing.T) {
	d, out := decideWith(t, "yes\n\n1\n")
	assert.Equal(t, approval.Proceed, d.Kind)
	assert.Contains(t, out, "Please enter 1, 2 or 3.")
}

func TestConsoleDeciderErrorOnClosedInput(t *testing.T) {
	var out bytes.Buffer
	decide := consoleDecider(bufio.NewReader(strings.NewReader("")), &out)
	_, err := decide(context.Background(), "receipt_report_generator", nil)
	assert.Error(t, err)
}

func TestConsoleDeciderRouteListPreview(t *testing.T) {
	var out bytes.Buffer
	decide := consoleDecider(bufio.NewReader(strings.NewReader("1\n")), &out)
	_, err := decide(context.Background(), "travel_report_generator", map[string]any{
		"routes": []any{
			map[string]any{"date": "2026-08-20", "departure": "shibuya", "destination": "shinjuku",
				"transport_type": "train", "cost": float64(160)},
			map[string]any{"date": "2026-08-20", "departure": "shinjuku", "destination": "shibuya",
				"transport_type": "train", "cost": float64(160)},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "segment 1: 2026-08-20  shibuya -> shinjuku by train, 160 yen")
	assert.Contains(t, out.String(), "total: 320 yen")
}
