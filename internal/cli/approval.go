package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/keihibot/keihibot/internal/approval"
)

// consoleDecider resolves approval requests at the terminal. It shows the
// operation and its arguments, then blocks until the operator picks an
// option. Invalid input re-prompts rather than defaulting to any decision.
func consoleDecider(in *bufio.Reader, out io.Writer) approval.DecisionFunc {
	return func(ctx context.Context, operation string, args map[string]any) (approval.Decision, error) {
		fmt.Fprintln(out)
		fmt.Fprintln(out, color.YellowString("Approval required: %s", operation))
		printArgs(out, args)
		fmt.Fprintln(out, "  [1] Approve")
		fmt.Fprintln(out, "  [2] Request changes")
		fmt.Fprintln(out, "  [3] Cancel the request")

		for {
			fmt.Fprint(out, "Choice: ")
			line, err := in.ReadString('\n')
			if err != nil {
				return approval.Decision{}, fmt.Errorf("read approval choice: %w", err)
			}
			switch strings.TrimSpace(line) {
			case "1":
				return approval.Decision{Kind: approval.Proceed}, nil
			case "2":
				fmt.Fprint(out, "What should be changed? ")
				feedback, err := in.ReadString('\n')
				if err != nil {
					return approval.Decision{}, fmt.Errorf("read revision feedback: %w", err)
				}
				return approval.Decision{Kind: approval.Revise, Feedback: strings.TrimSpace(feedback)}, nil
			case "3":
				return approval.Decision{Kind: approval.Cancel}, nil
			default:
				fmt.Fprintln(out, "Please enter 1, 2 or 3.")
			}
		}
	}
}

func printArgs(out io.Writer, args map[string]any) {
	if len(args) == 0 {
		return
	}
	if routes, ok := args["routes"].([]any); ok {
		printRoutes(out, routes)
		return
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %v\n", k, args[k])
	}
}

// printRoutes renders a travel filing as one line per segment plus the
// total, which is easier to review than a raw argument dump.
func printRoutes(out io.Writer, routes []any) {
	var total float64
	for i, item := range routes {
		seg, ok := item.(map[string]any)
		if !ok {
			fmt.Fprintf(out, "  segment %d: %v\n", i+1, item)
			continue
		}
		cost, _ := seg["cost"].(float64)
		total += cost
		fmt.Fprintf(out, "  segment %d: %v  %v -> %v by %v, %.0f yen\n",
			i+1, seg["date"], seg["departure"], seg["destination"], seg["transport_type"], cost)
	}
	fmt.Fprintf(out, "  total: %.0f yen\n", total)
}
