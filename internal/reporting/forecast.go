// Package reporting renders an execution forecast as a human-readable
// report for the dashboard and CLI.
package reporting

import (
	"time"

	"tx-forecast-lab/internal/calltree"
	"tx-forecast-lab/internal/domain"
	"tx-forecast-lab/internal/flows"
)

// Forecast bundles everything derived from one canonical result.
type Forecast struct {
	GeneratedAt time.Time
	Actor       string

	Result *domain.SimulationResult
	Tree   *calltree.Tree
	Gas    calltree.GasBreakdown
	Access calltree.AccessSummary
	Flows  *flows.Summary
}

// BuildForecast derives the full forecast from a canonical result. topN
// bounds the callee ranking, maxPoints the flow series; zero values use the
// component defaults.
func BuildForecast(res *domain.SimulationResult, actor string, topN, maxPoints int) *Forecast {
	tree := calltree.Build(res.Trace)
	return &Forecast{
		GeneratedAt: time.Now(),
		Actor:       actor,
		Result:      res,
		Tree:        tree,
		Gas:         calltree.Attribute(tree, res.GasUsed.Big(), topN),
		Access:      calltree.SummarizeAccessList(res.AccessList),
		Flows:       flows.Aggregate(res.AssetChanges, actor, maxPoints),
	}
}

// ErrorOrigins walks the tree and returns the frames where failures
// actually originated, deepest-first within each root.
func (f *Forecast) ErrorOrigins() []*calltree.Node {
	var origins []*calltree.Node
	var walk func(n *calltree.Node)
	walk = func(n *calltree.Node) {
		for _, c := range n.Children {
			walk(c)
		}
		if n.IsErrorOrigin {
			origins = append(origins, n)
		}
	}
	for _, root := range f.Tree.Roots {
		walk(root)
	}
	return origins
}
