package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Result is the structured outcome of a report generation attempt. It is
// returned to the model as JSON; success=false is an ordinary operation
// result, never an error.
type Result struct {
	Success      bool    `json:"success"`
	ArtifactPath string  `json:"artifact_path"`
	TotalCost    float64 `json:"total_cost,omitempty"`
	Message      string  `json:"message"`
}

func (r Result) encode() string {
	out, _ := json.Marshal(r)
	return string(out)
}

// ReportConfig carries the shared settings for the report generators.
type ReportConfig struct {
	OutputDir     string
	AmountCeiling float64
	// Subject returns the applicant name for the current invocation. The
	// model never supplies it; identity comes from the invocation context.
	Subject func() string
}

func (c ReportConfig) subjectName() string {
	if c.Subject == nil {
		return ""
	}
	return c.Subject()
}

func (c ReportConfig) ceilingExceeded(amount float64) (Result, bool) {
	if amount <= c.AmountCeiling {
		return Result{}, false
	}
	return Result{
		Success: false,
		Message: fmt.Sprintf("amount %.0f exceeds the filing ceiling of %.0f yen", amount, c.AmountCeiling),
	}, true
}

// ---------------------------------------------------------------------------
// Travel expense report
// ---------------------------------------------------------------------------

// TravelReportTool generates the travel expense report workbook.
type TravelReportTool struct {
	cfg ReportConfig
}

// NewTravelReportTool creates the travel_report_generator tool.
func NewTravelReportTool(cfg ReportConfig) *TravelReportTool {
	return &TravelReportTool{cfg: cfg}
}

func (t *TravelReportTool) Name() string { return "travel_report_generator" }

func (t *TravelReportTool) Description() string {
	return "Generate the travel expense report workbook from the collected route segments. " +
		"Call it once, after the user has confirmed every segment. " +
		"Check the success field of the result; on success=false read the message field."
}

func (t *TravelReportTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"routes": map[string]any{
				"type":        "array",
				"description": "All collected route segments",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"departure":      map[string]any{"type": "string"},
						"destination":    map[string]any{"type": "string"},
						"date":           map[string]any{"type": "string", "description": "YYYY-MM-DD"},
						"transport_type": map[string]any{"type": "string"},
						"cost":           map[string]any{"type": "number"},
						"notes":          map[string]any{"type": "string"},
					},
					"required": []string{"departure", "destination", "date", "transport_type", "cost"},
				},
			},
		},
		"required": []string{"routes"},
	}
}

type routeSegment struct {
	Departure   string
	Destination string
	Date        string
	Transport   string
	Cost        float64
	Notes       string
}

func parseRoutes(params map[string]any) ([]routeSegment, error) {
	raw, ok := params["routes"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("routes: must be a non-empty list")
	}
	segments := make([]routeSegment, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("routes[%d]: must be an object", i)
		}
		departure, err := stringArg(entry, "departure")
		if err != nil {
			return nil, fmt.Errorf("routes[%d].%s", i, err)
		}
		destination, err := stringArg(entry, "destination")
		if err != nil {
			return nil, fmt.Errorf("routes[%d].%s", i, err)
		}
		date, err := dateArg(entry, "date")
		if err != nil {
			return nil, fmt.Errorf("routes[%d].%s", i, err)
		}
		transport, err := transportArg(entry, "transport_type")
		if err != nil {
			return nil, fmt.Errorf("routes[%d].%s", i, err)
		}
		cost, err := floatArg(entry, "cost")
		if err != nil {
			return nil, fmt.Errorf("routes[%d].%s", i, err)
		}
		notes, _ := entry["notes"].(string)
		segments = append(segments, routeSegment{
			Departure:   departure,
			Destination: destination,
			Date:        date,
			Transport:   transport,
			Cost:        cost,
			Notes:       notes,
		})
	}
	return segments, nil
}

func (t *TravelReportTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	routes, err := parseRoutes(params)
	if err != nil {
		return Result{Success: false, Message: "invalid input: " + err.Error()}.encode(), nil
	}

	var total float64
	for _, r := range routes {
		total += r.Cost
	}
	if res, over := t.cfg.ceilingExceeded(total); over {
		res.TotalCost = total
		return res.encode(), nil
	}

	path := filepath.Join(t.cfg.OutputDir,
		fmt.Sprintf("travel_expense_report_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := writeTravelWorkbook(path, t.cfg.subjectName(), routes, total); err != nil {
		return Result{Success: false, Message: "failed to write workbook: " + err.Error()}.encode(), nil
	}

	return Result{
		Success:      true,
		ArtifactPath: path,
		TotalCost:    total,
		Message:      fmt.Sprintf("travel expense report saved: %s", path),
	}.encode(), nil
}

func writeTravelWorkbook(path, applicant string, routes []routeSegment, total float64) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Travel Expense Report")
	f.SetCellStyle(sheet, "A1", "A1", header)
	f.SetCellValue(sheet, "A3", "Applicant")
	f.SetCellValue(sheet, "B3", applicant)
	f.SetCellValue(sheet, "A4", "Filed")
	f.SetCellValue(sheet, "B4", time.Now().Format("2006-01-02"))

	cols := []string{"Date", "Departure", "Destination", "Transport", "Cost", "Notes"}
	for i, name := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		f.SetCellValue(sheet, cell, name)
		f.SetCellStyle(sheet, cell, cell, header)
	}
	for i, r := range routes {
		row := 7 + i
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Date)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Departure)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.Destination)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.Transport)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.Cost)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.Notes)
	}
	totalRow := 7 + len(routes) + 1
	f.SetCellValue(sheet, fmt.Sprintf("D%d", totalRow), "Total")
	f.SetCellStyle(sheet, fmt.Sprintf("D%d", totalRow), fmt.Sprintf("D%d", totalRow), header)
	f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), total)

	f.SetColWidth(sheet, "A", "F", 18)
	return f.SaveAs(path)
}

// ---------------------------------------------------------------------------
// Receipt expense report
// ---------------------------------------------------------------------------

// ReceiptReportTool generates the receipt-based expense report workbook.
type ReceiptReportTool struct {
	cfg ReportConfig
}

// NewReceiptReportTool creates the receipt_report_generator tool.
func NewReceiptReportTool(cfg ReportConfig) *ReceiptReportTool {
	return &ReceiptReportTool{cfg: cfg}
}

func (t *ReceiptReportTool) Name() string { return "receipt_report_generator" }

func (t *ReceiptReportTool) Description() string {
	return "Generate the expense report workbook from the confirmed receipt details. " +
		"The applicant name is taken from the invocation context; do not pass it. " +
		"Check the success field of the result; on success=false read the message field."
}

func (t *ReceiptReportTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"store_name": map[string]any{"type": "string"},
			"amount":     map[string]any{"type": "number", "description": "Total amount in yen"},
			"date":       map[string]any{"type": "string", "description": "Receipt date, YYYY-MM-DD"},
			"items":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"expense_category": map[string]any{
				"type":        "string",
				"description": "Office supplies, lodging, certification, or other",
			},
		},
		"required": []string{"store_name", "amount", "date", "items", "expense_category"},
	}
}

func (t *ReceiptReportTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	store, err := stringArg(params, "store_name")
	if err != nil {
		return Result{Success: false, Message: "invalid input: " + err.Error()}.encode(), nil
	}
	amount, err := floatArg(params, "amount")
	if err != nil {
		return Result{Success: false, Message: "invalid input: " + err.Error()}.encode(), nil
	}
	date, err := dateArg(params, "date")
	if err != nil {
		return Result{Success: false, Message: "invalid input: " + err.Error()}.encode(), nil
	}
	items, err := stringListArg(params, "items")
	if err != nil {
		return Result{Success: false, Message: "invalid input: " + err.Error()}.encode(), nil
	}
	category, err := stringArg(params, "expense_category")
	if err != nil {
		return Result{Success: false, Message: "invalid input: " + err.Error()}.encode(), nil
	}

	if res, over := t.cfg.ceilingExceeded(amount); over {
		return res.encode(), nil
	}

	path := filepath.Join(t.cfg.OutputDir,
		fmt.Sprintf("expense_report_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := writeReceiptWorkbook(path, t.cfg.subjectName(), store, date, category, items, amount); err != nil {
		return Result{Success: false, Message: "failed to write workbook: " + err.Error()}.encode(), nil
	}

	return Result{
		Success:      true,
		ArtifactPath: path,
		Message:      fmt.Sprintf("expense report saved: %s", path),
	}.encode(), nil
}

func writeReceiptWorkbook(path, applicant, store, date, category string, items []string, amount float64) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Expense Report")
	f.SetCellStyle(sheet, "A1", "A1", header)

	rows := [][2]any{
		{"Applicant", applicant},
		{"Filed", time.Now().Format("2006-01-02")},
		{"Store", store},
		{"Amount", amount},
		{"Purchase date", date},
		{"Category", category},
		{"Items", strings.Join(items, ", ")},
		{"Approval", "approved"},
	}
	for i, row := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", 3+i), row[0])
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", 3+i), fmt.Sprintf("A%d", 3+i), header)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", 3+i), row[1])
	}

	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "B", "B", 40)
	return f.SaveAs(path)
}
