package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRules = Rules{AmountCeiling: 30000, ApprovalThreshold: 5000, WindowDays: 90}

func TestWindow(t *testing.T) {
	oldest, err := Window("2026-08-29", 90)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-31", oldest)

	_, err = Window("29/08/2026", 90)
	assert.Error(t, err)
}

func TestTravelPromptCarriesDatesAndRules(t *testing.T) {
	p := TravelSystemPrompt("Tanaka Hanako", "2026-08-29", testRules)

	assert.Contains(t, p, "Tanaka Hanako")
	assert.Contains(t, p, "2026-08-29")
	assert.Contains(t, p, "2026-05-31")
	assert.Contains(t, p, "5,000 yen")
	assert.Contains(t, p, "30,000 yen")
	assert.Contains(t, p, "calculate_fare")
	assert.Contains(t, p, "travel_report_generator")
	assert.Contains(t, p, "Ueno and Toyosu")
}

func TestReceiptPromptCarriesCategories(t *testing.T) {
	p := ReceiptSystemPrompt("Sato Jiro", "2026-08-29", testRules)

	assert.Contains(t, p, "Sato Jiro")
	assert.Contains(t, p, "receipt_report_generator")
	assert.Contains(t, p, "Office supplies")
	assert.Contains(t, p, "Lodging")
	assert.Contains(t, p, "Certification")
	assert.NotContains(t, p, "calculate_fare")
}

func TestYenFormatting(t *testing.T) {
	assert.Equal(t, "500", yen(500))
	assert.Equal(t, "5,000", yen(5000))
	assert.Equal(t, "1,230,000", yen(1230000))
}
