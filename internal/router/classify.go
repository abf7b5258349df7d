package router

import "strings"

// Route is the classification of one user turn.
type Route int

const (
	// RouteClarify means the turn matched no worker kind; the desk answers
	// with a clarification question instead of delegating.
	RouteClarify Route = iota
	// RouteTravel delegates to the travel expense worker.
	RouteTravel
	// RouteReceipt delegates to the receipt expense worker.
	RouteReceipt
)

var travelKeywords = []string{
	"travel", "trip", "fare", "commute", "transport",
	"train", "bus", "taxi", "airplane", "flight", "station",
	"交通費", "出張", "移動", "電車", "バス", "タクシー", "飛行機", "駅", "運賃",
}

// "expense" is deliberately absent: both filings are expenses and the word
// carries no routing signal.
var receiptKeywords = []string{
	"receipt", "purchase", "bought",
	"store", "stationery", "book", "hotel", "lodging",
	"certification", "exam",
	"領収書", "経費", "購入", "宿泊", "ホテル", "資格", "書籍", "文房具", "備品",
}

// Classify maps one user turn to a route. The mapping is total: every input
// yields exactly one route, falling back to RouteClarify when the turn gives
// no signal or the signal is ambiguous.
func Classify(turn string) Route {
	text := strings.ToLower(turn)

	travel := score(text, travelKeywords)
	receipt := score(text, receiptKeywords)

	switch {
	case travel > receipt:
		return RouteTravel
	case receipt > travel:
		return RouteReceipt
	default:
		return RouteClarify
	}
}

func score(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
