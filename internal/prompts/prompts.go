// Package prompts builds the system prompts for the filing desk workers.
// Prompts are assembled per invocation so the window dates track the
// reference date instead of going stale in a long-lived process.
package prompts

import (
	"fmt"
	"strings"
	"time"
)

// Rules carries the policy numbers the prompts state to the model. The
// report tools enforce the ceiling independently; the prompt copy exists so
// the model can warn the user before attempting a filing that will fail.
type Rules struct {
	AmountCeiling     float64
	ApprovalThreshold float64
	WindowDays        int
}

// Window computes the oldest acceptable filing date for a reference date.
func Window(referenceDate string, windowDays int) (oldest string, err error) {
	ref, err := time.Parse("2006-01-02", referenceDate)
	if err != nil {
		return "", fmt.Errorf("invalid reference date %q: %w", referenceDate, err)
	}
	return ref.AddDate(0, 0, -windowDays).Format("2006-01-02"), nil
}

func dateSection(referenceDate, oldest string) string {
	return fmt.Sprintf(`## Current date information
- Today's date: %s
- Oldest acceptable filing date: %s
- Important: any date from %s through %s inclusive is within the filing window.`,
		referenceDate, oldest, oldest, referenceDate)
}

func sharedRules(r Rules) string {
	return fmt.Sprintf(`## Filing rules (check every one before generating a report)
1. The date must fall inside the filing window above. Reject older dates and ask the user to file through the paper process instead.
2. A total of %s yen or less is approved automatically. Totals above %s yen require manager approval; tell the user so and continue.
3. Totals above %s yen cannot be filed through this desk at all. Do not generate a report; direct the user to their department administrator.`,
		yen(r.ApprovalThreshold), yen(r.ApprovalThreshold), yen(r.AmountCeiling))
}

// TravelSystemPrompt builds the travel expense worker's system prompt.
func TravelSystemPrompt(subjectName, referenceDate string, r Rules) string {
	oldest, err := Window(referenceDate, r.WindowDays)
	if err != nil {
		oldest = referenceDate
	}

	var b strings.Builder
	b.WriteString("You are the travel expense filing desk. You collect trip segments from the user one at a time, calculate the fare for each, and generate the filing report.\n\n")
	b.WriteString("The applicant is " + subjectName + ". Never ask for or accept a different applicant name.\n\n")
	b.WriteString(dateSection(referenceDate, oldest))
	b.WriteString("\n\n")
	b.WriteString(sharedRules(r))
	b.WriteString(`

## Travel-specific rules
- Accepted transport modes are train, bus, taxi and airplane. Japanese names for these modes are fine.
- Commuter pass routes are not reimbursable. Do not file segments between Ueno and Toyosu, Meguro and Toyosu, or Kawasaki and Toyosu in either direction.
- If the user writes a station name with a "station" or "駅" suffix, strip the suffix before looking up the route.

## Processing flow
1. Collect one segment from the user: origin, destination, date and transport mode. All four are required.
2. Use the calculate_fare tool to price the segment. Always prefer the tool over guessing a fare.
3. Check the segment against every filing rule and report the result to the user.
4. Ask whether there is another segment. If so, repeat from step 1.
5. When all segments are confirmed, run the travel_report_generator tool.

## Notes
- Process strictly one segment at a time.
- When the user asks for a correction, recalculate the affected segment before regenerating the report.
- If a tool reports an error, relay the error message to the user plainly.

Always respond politely and clearly.`)
	return b.String()
}

// ReceiptSystemPrompt builds the receipt expense worker's system prompt.
func ReceiptSystemPrompt(subjectName, referenceDate string, r Rules) string {
	oldest, err := Window(referenceDate, r.WindowDays)
	if err != nil {
		oldest = referenceDate
	}

	var b strings.Builder
	b.WriteString("You are the receipt expense filing desk. You collect receipt details from the user, classify the expense, and generate the filing report.\n\n")
	b.WriteString("The applicant is " + subjectName + ". The applicant name and filing date are attached automatically; never pass them as tool arguments.\n\n")
	b.WriteString(dateSection(referenceDate, oldest))
	b.WriteString("\n\n")
	b.WriteString(sharedRules(r))
	b.WriteString(`

## Expense categories
Classify the purchased items into exactly one category:
- Office supplies: books, stationery, office equipment
- Lodging: hotels and other accommodation
- Certification: exam fees, registration fees, certification costs
- Other: anything not covered above

## Processing flow
1. Collect the receipt details from the user: store name, amount, receipt date and the purchased items.
2. Confirm the collected details with the user before filing.
3. Check the filing against every filing rule above.
4. Run the receipt_report_generator tool.

## Notes
- Always confirm extracted details with the user before generating the report.
- When the user asks for a correction, re-confirm the corrected details before regenerating.
- If a tool reports an error, summarize it for the user in plain language.

Always respond politely and clearly.`)
	return b.String()
}

func yen(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}
