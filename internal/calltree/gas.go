package calltree

import (
	"math/big"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"tx-forecast-lab/internal/domain"
)

// DefaultTopCallees bounds the per-callee ranking when no limit is given.
const DefaultTopCallees = 5

// GasBreakdown summarizes how the total gas of a simulation distributes
// across the call tree.
type GasBreakdown struct {
	TotalGas     *uint256.Int
	ExecutionGas *uint256.Int // sum of all nodes' exclusive gas
	OverheadGas  *uint256.Int // total minus execution, floored at 0

	OverheadPct   float64 // overhead / total
	Concentration float64 // top-5 exclusive sum / execution
	PeakVsMedian  float64 // largest exclusive / median of positive exclusives

	TopCallees []CalleeGas
}

// CalleeGas is the exclusive gas accumulated by one callee address.
type CalleeGas struct {
	Address      string
	ExclusiveGas *uint256.Int
	Calls        int
}

// AccessSummary aggregates the generated access list.
type AccessSummary struct {
	Addresses   int
	StorageKeys int
	Ranked      []AccessEntry // by key count descending
}

// AccessEntry is one access-list address with its storage-key count.
type AccessEntry struct {
	Address  string
	KeyCount int
}

// Attribute computes the gas breakdown for a built tree. totalGas is the
// authoritative top-level figure; when absent or zero the sum of exclusive
// gas stands in. All ratios are guarded against zero denominators and
// computed with exact integer arithmetic scaled to two decimal places, so
// large gas values never drift through floats.
func Attribute(tree *Tree, totalGas *uint256.Int, topN int) GasBreakdown {
	if topN <= 0 {
		topN = DefaultTopCallees
	}

	execution := new(uint256.Int)
	var exclusives []*uint256.Int
	byCallee := make(map[string]*CalleeGas)

	for _, n := range tree.NodesByKey {
		execution.Add(execution, n.ExclusiveGas)
		exclusives = append(exclusives, n.ExclusiveGas)

		addr := strings.ToLower(n.Entry.To)
		if addr == "" {
			continue
		}
		cg, ok := byCallee[addr]
		if !ok {
			cg = &CalleeGas{Address: addr, ExclusiveGas: new(uint256.Int)}
			byCallee[addr] = cg
		}
		cg.ExclusiveGas.Add(cg.ExclusiveGas, n.ExclusiveGas)
		cg.Calls++
	}

	total := totalGas
	if total == nil || total.IsZero() {
		total = new(uint256.Int).Set(execution)
	}

	overhead := new(uint256.Int)
	if total.Cmp(execution) > 0 {
		overhead.Sub(total, execution)
	}

	b := GasBreakdown{
		TotalGas:     new(uint256.Int).Set(total),
		ExecutionGas: execution,
		OverheadGas:  overhead,
		OverheadPct:  scaledRatio(overhead.ToBig(), total.ToBig(), 10000),
	}

	// Top-5 concentration over exclusive gas, per the dashboard contract.
	sort.Slice(exclusives, func(i, j int) bool {
		return exclusives[i].Cmp(exclusives[j]) > 0
	})
	topSum := new(uint256.Int)
	for i, v := range exclusives {
		if i == 5 {
			break
		}
		topSum.Add(topSum, v)
	}
	b.Concentration = scaledRatio(topSum.ToBig(), execution.ToBig(), 10000)
	b.PeakVsMedian = peakVsMedian(exclusives)

	callees := make([]CalleeGas, 0, len(byCallee))
	for _, cg := range byCallee {
		callees = append(callees, *cg)
	}
	sort.Slice(callees, func(i, j int) bool {
		if c := callees[i].ExclusiveGas.Cmp(callees[j].ExclusiveGas); c != 0 {
			return c > 0
		}
		return callees[i].Address < callees[j].Address
	})
	if len(callees) > topN {
		callees = callees[:topN]
	}
	b.TopCallees = callees

	return b
}

// peakVsMedian divides the largest exclusive gas by the median of the
// strictly-positive exclusive values. values must be sorted descending. The
// even-size median is kept as an exact rational (sum over 2) until the final
// division. No positive values yields 0.
func peakVsMedian(values []*uint256.Int) float64 {
	var positive []*uint256.Int
	for _, v := range values {
		if !v.IsZero() {
			positive = append(positive, v)
		}
	}
	if len(positive) == 0 {
		return 0
	}

	peak := positive[0].ToBig()
	mid := len(positive) / 2
	var medNum, medDen *big.Int
	if len(positive)%2 == 1 {
		medNum = positive[mid].ToBig()
		medDen = big.NewInt(1)
	} else {
		medNum = new(big.Int).Add(positive[mid-1].ToBig(), positive[mid].ToBig())
		medDen = big.NewInt(2)
	}

	// peak / (medNum/medDen) = peak*medDen / medNum
	return scaledRatio(new(big.Int).Mul(peak, medDen), medNum, 100)
}

// SummarizeAccessList counts distinct addresses and storage keys and ranks
// addresses by key count descending.
func SummarizeAccessList(al domain.AccessList) AccessSummary {
	s := AccessSummary{Addresses: len(al)}
	for addr, keys := range al {
		s.StorageKeys += len(keys)
		s.Ranked = append(s.Ranked, AccessEntry{Address: addr, KeyCount: len(keys)})
	}
	sort.Slice(s.Ranked, func(i, j int) bool {
		if s.Ranked[i].KeyCount != s.Ranked[j].KeyCount {
			return s.Ranked[i].KeyCount > s.Ranked[j].KeyCount
		}
		return s.Ranked[i].Address < s.Ranked[j].Address
	})
	return s
}

// scaledRatio computes numer/denom truncated at the given precision using
// integer arithmetic only. scale 10000 keeps two decimal places of a
// percentage; scale 100 two decimal places of a plain multiple. Zero
// denominator yields 0.
func scaledRatio(numer, denom *big.Int, scale int64) float64 {
	if denom.Sign() == 0 {
		return 0
	}
	scaled := new(big.Int).Mul(numer, big.NewInt(scale))
	scaled.Quo(scaled, denom)
	return float64(scaled.Int64()) / float64(scale)
}
