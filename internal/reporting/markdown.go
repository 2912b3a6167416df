package reporting

import (
	"fmt"
	"strings"
	"time"

	"tx-forecast-lab/internal/calltree"
)

// RenderMarkdown renders a forecast as a Markdown string.
func RenderMarkdown(f *Forecast) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Execution Forecast\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", f.GeneratedAt.Format(time.RFC3339)))
	if f.Actor != "" {
		sb.WriteString(fmt.Sprintf("Actor: `%s`\n\n", f.Actor))
	}

	// Gas breakdown
	sb.WriteString("## Gas Breakdown\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", f.Result.Status))
	sb.WriteString(fmt.Sprintf("| Total Gas | %s |\n", f.Gas.TotalGas.Dec()))
	sb.WriteString(fmt.Sprintf("| Execution Gas | %s |\n", f.Gas.ExecutionGas.Dec()))
	sb.WriteString(fmt.Sprintf("| Overhead Gas | %s |\n", f.Gas.OverheadGas.Dec()))
	sb.WriteString(fmt.Sprintf("| Overhead %% | %.2f%% |\n", f.Gas.OverheadPct*100))
	sb.WriteString(fmt.Sprintf("| Top-5 Concentration | %.2f%% |\n", f.Gas.Concentration*100))
	sb.WriteString(fmt.Sprintf("| Peak vs Median | %.2fx |\n", f.Gas.PeakVsMedian))
	sb.WriteString("\n")

	if len(f.Gas.TopCallees) > 0 {
		sb.WriteString("### Top Callees by Exclusive Gas\n\n")
		sb.WriteString("| Address | Exclusive Gas | Calls |\n")
		sb.WriteString("|---------|---------------|-------|\n")
		for _, c := range f.Gas.TopCallees {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", c.Address, c.ExclusiveGas.Dec(), c.Calls))
		}
		sb.WriteString("\n")
	}

	// Call tree
	if len(f.Tree.Roots) > 0 {
		sb.WriteString("## Call Tree\n\n")
		for _, root := range f.Tree.Roots {
			writeNode(&sb, root, 0)
		}
		sb.WriteString("\n")
	}

	// Error origins
	if origins := f.ErrorOrigins(); len(origins) > 0 {
		sb.WriteString("## Failure Origins\n\n")
		for _, n := range origins {
			key := n.Key
			if key == "" {
				key = "(root)"
			}
			sb.WriteString(fmt.Sprintf("- `%s` at %s: %s\n", key, callLabel(n), n.Entry.Error))
		}
		sb.WriteString("\n")
	}

	// Access list
	if f.Access.Addresses > 0 {
		sb.WriteString("## Access List\n\n")
		sb.WriteString(fmt.Sprintf("%d address(es), %d storage key(s)\n\n", f.Access.Addresses, f.Access.StorageKeys))
		sb.WriteString("| Address | Storage Keys |\n")
		sb.WriteString("|---------|--------------|\n")
		for _, e := range f.Access.Ranked {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", e.Address, e.KeyCount))
		}
		sb.WriteString("\n")
	}

	// Token flows
	sb.WriteString("## Token Flows\n\n")
	if f.Flows.TransferCount == 0 {
		sb.WriteString("No asset changes.\n\n")
	} else {
		if f.Actor != "" {
			sb.WriteString(fmt.Sprintf("Received: $%.2f | Sent: $%.2f | Net: $%.2f\n\n",
				f.Flows.ReceivedUSD, f.Flows.SentUSD, f.Flows.NetUSD))
		} else {
			sb.WriteString(fmt.Sprintf("Transfer volume: $%.2f across %d transfer(s)\n\n",
				f.Flows.VolumeUSD, f.Flows.TransferCount))
		}

		if len(f.Flows.Tokens) > 0 {
			sb.WriteString("| Token | USD | Transfers |\n")
			sb.WriteString("|-------|-----|-----------|\n")
			for _, t := range f.Flows.Tokens {
				sb.WriteString(fmt.Sprintf("| %s | $%.2f | %d |\n", t.Label, t.USD, t.Transfers))
			}
			sb.WriteString("\n")
		}

		if len(f.Flows.Counterparties) > 0 {
			sb.WriteString("### Counterparties by Volume\n\n")
			sb.WriteString("| Address | In USD | Out USD | Net USD |\n")
			sb.WriteString("|---------|--------|---------|--------|\n")
			for _, p := range f.Flows.Counterparties {
				sb.WriteString(fmt.Sprintf("| %s | $%.2f | $%.2f | $%.2f |\n",
					p.Address, p.InUSD, p.OutUSD, p.NetUSD))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// writeNode renders one call frame as an indented list entry.
func writeNode(sb *strings.Builder, n *calltree.Node, depth int) {
	marker := ""
	if n.IsErrorOrigin {
		marker = " [error] " + n.Entry.Error
	} else if n.SubtreeHasError {
		marker = " (failure below)"
	}
	sb.WriteString(fmt.Sprintf("%s- %s gas=%s (self %s)%s\n",
		strings.Repeat("  ", depth), callLabel(n), n.InclusiveGas.Dec(), n.ExclusiveGas.Dec(), marker))
	for _, c := range n.Children {
		writeNode(sb, c, depth+1)
	}
}

func callLabel(n *calltree.Node) string {
	kind := n.Entry.CallType
	if kind == "" {
		kind = "call"
	}
	label := fmt.Sprintf("%s %s", kind, n.Entry.To)
	if n.Entry.Method != "" {
		label += "." + n.Entry.Method
	}
	return strings.TrimSpace(label)
}
