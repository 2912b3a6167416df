package calltree

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"tx-forecast-lab/internal/domain"
)

func TestAttribute_OverheadAndFallback(t *testing.T) {
	tree := Build([]domain.TraceEntry{
		entry([]int{}, 80, "0xa", ""),
		entry([]int{0}, 30, "0xb", ""),
	})

	b := Attribute(tree, uint256.NewInt(100), 0)
	if b.ExecutionGas.Uint64() != 80 {
		t.Errorf("execution: expected 80, got %d", b.ExecutionGas.Uint64())
	}
	if b.OverheadGas.Uint64() != 20 {
		t.Errorf("overhead: expected 20, got %d", b.OverheadGas.Uint64())
	}
	if b.OverheadPct != 0.2 {
		t.Errorf("overhead pct: expected 0.2, got %v", b.OverheadPct)
	}

	// Absent total falls back to the exclusive sum, leaving no overhead.
	b = Attribute(tree, nil, 0)
	if b.TotalGas.Uint64() != 80 {
		t.Errorf("fallback total: expected 80, got %d", b.TotalGas.Uint64())
	}
	if !b.OverheadGas.IsZero() || b.OverheadPct != 0 {
		t.Errorf("fallback overhead: expected 0, got %d (%v)", b.OverheadGas.Uint64(), b.OverheadPct)
	}

	// Reported total below the execution sum must not underflow.
	b = Attribute(tree, uint256.NewInt(10), 0)
	if !b.OverheadGas.IsZero() {
		t.Errorf("clamped overhead: expected 0, got %d", b.OverheadGas.Uint64())
	}
}

func TestAttribute_Concentration(t *testing.T) {
	// Seven frames; the top five exclusives are 70,10,10,10,10 of 130 total.
	tree := Build([]domain.TraceEntry{
		entry([]int{}, 130, "0xroot", ""),
		entry([]int{0}, 10, "0xa", ""),
		entry([]int{1}, 10, "0xb", ""),
		entry([]int{2}, 10, "0xc", ""),
		entry([]int{3}, 10, "0xd", ""),
		entry([]int{4}, 10, "0xe", ""),
		entry([]int{5}, 10, "0xf", ""),
	})

	b := Attribute(tree, nil, 0)
	// root exclusive = 130-60 = 70; top five = 70+10*4 = 110 of 130.
	want := float64(110*10000/130) / 10000
	if b.Concentration != want {
		t.Errorf("concentration: expected %v, got %v", want, b.Concentration)
	}
}

func TestAttribute_PeakVsMedian(t *testing.T) {
	// Odd count of positive exclusives: 90, 20, 10 -> median 20, peak 90.
	tree := Build([]domain.TraceEntry{
		entry([]int{}, 120, "0xa", ""),
		entry([]int{0}, 20, "0xb", ""),
		entry([]int{1}, 10, "0xc", ""),
	})
	b := Attribute(tree, nil, 0)
	if b.PeakVsMedian != 4.5 {
		t.Errorf("odd median: expected 4.5, got %v", b.PeakVsMedian)
	}

	// Even count: 90, 30, 20, 10 -> median (30+20)/2 = 25, peak 90 -> 3.6.
	// The halved median must stay exact rather than rounding early.
	tree = Build([]domain.TraceEntry{
		entry([]int{}, 150, "0xa", ""),
		entry([]int{0}, 30, "0xb", ""),
		entry([]int{1}, 20, "0xc", ""),
		entry([]int{2}, 10, "0xd", ""),
	})
	b = Attribute(tree, nil, 0)
	if b.PeakVsMedian != 3.6 {
		t.Errorf("even median: expected 3.6, got %v", b.PeakVsMedian)
	}

	// Zero-gas frames are excluded from the median population.
	tree = Build([]domain.TraceEntry{
		entry([]int{}, 0, "0xa", ""),
		entry([]int{0}, 0, "0xb", ""),
	})
	b = Attribute(tree, nil, 0)
	if b.PeakVsMedian != 0 {
		t.Errorf("all-zero: expected 0, got %v", b.PeakVsMedian)
	}
}

func TestAttribute_CalleeGrouping(t *testing.T) {
	// Same contract in mixed case must group under one callee.
	tree := Build([]domain.TraceEntry{
		entry([]int{}, 100, "0xAbC", ""),
		entry([]int{0}, 40, "0xabc", ""),
		entry([]int{1}, 30, "0xDEF", ""),
		entry([]int{2}, 0, "", ""),
	})

	b := Attribute(tree, nil, 2)
	if len(b.TopCallees) != 2 {
		t.Fatalf("expected 2 callees, got %d", len(b.TopCallees))
	}
	top := b.TopCallees[0]
	if top.Address != "0xabc" || top.Calls != 2 {
		t.Errorf("top callee: expected 0xabc with 2 calls, got %s with %d", top.Address, top.Calls)
	}
	// root exclusive 30 + child 40.
	if top.ExclusiveGas.Uint64() != 70 {
		t.Errorf("top callee gas: expected 70, got %d", top.ExclusiveGas.Uint64())
	}
	if b.TopCallees[1].Address != "0xdef" {
		t.Errorf("second callee: expected 0xdef, got %s", b.TopCallees[1].Address)
	}
}

func TestAttribute_TopNBounds(t *testing.T) {
	tree := Build([]domain.TraceEntry{
		entry([]int{}, 50, "0xa", ""),
		entry([]int{0}, 10, "0xb", ""),
	})
	b := Attribute(tree, nil, 1)
	if len(b.TopCallees) != 1 {
		t.Errorf("expected ranking capped at 1, got %d", len(b.TopCallees))
	}
}

func TestSummarizeAccessList(t *testing.T) {
	s := SummarizeAccessList(domain.AccessList{
		"0xaaa": {"0x1", "0x2", "0x3"},
		"0xbbb": {"0x1"},
		"0xccc": {"0x1", "0x2", "0x3"},
	})
	if s.Addresses != 3 || s.StorageKeys != 7 {
		t.Errorf("expected 3 addresses / 7 keys, got %d / %d", s.Addresses, s.StorageKeys)
	}
	// Equal key counts fall back to address order.
	want := []string{"0xaaa", "0xccc", "0xbbb"}
	for i, e := range s.Ranked {
		if e.Address != want[i] {
			t.Errorf("rank %d: expected %s, got %s", i, want[i], e.Address)
		}
	}

	empty := SummarizeAccessList(nil)
	if empty.Addresses != 0 || empty.StorageKeys != 0 || len(empty.Ranked) != 0 {
		t.Error("empty access list must summarize to zeros")
	}
}

func TestScaledRatio(t *testing.T) {
	if got := scaledRatio(big.NewInt(1), big.NewInt(3), 10000); got != 0.3333 {
		t.Errorf("1/3: expected 0.3333, got %v", got)
	}
	if got := scaledRatio(big.NewInt(5), big.NewInt(0), 10000); got != 0 {
		t.Errorf("zero denominator: expected 0, got %v", got)
	}
	// Values beyond float64's 53-bit mantissa still divide exactly.
	numer, _ := new(big.Int).SetString("200000000000000000000", 10)
	denom, _ := new(big.Int).SetString("400000000000000000000", 10)
	if got := scaledRatio(numer, denom, 10000); got != 0.5 {
		t.Errorf("big ratio: expected 0.5, got %v", got)
	}
}
