// Package flows summarizes the asset-change records of a simulation into
// per-participant and per-token statistics plus a time-ordered flow series
// for charting.
package flows

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"tx-forecast-lab/internal/domain"
)

const (
	// DefaultMaxPoints bounds the flow series handed to charting consumers.
	DefaultMaxPoints = 100

	// netFlowEpsilon separates participants with real net movement from
	// rounding noise in the net-flow selection.
	netFlowEpsilon = 1e-6

	// Net-flow selection: above this many non-trivial participants only the
	// strongest six per side are kept.
	netFlowLimit    = 12
	netFlowPerSide  = 6
	unknownTokenKey = "Unknown"
)

// Summary is the aggregated view of one batch of asset changes.
type Summary struct {
	// Actor-relative totals; only populated when an actor is set.
	ReceivedUSD float64
	SentUSD     float64
	NetUSD      float64

	// VolumeUSD is the total transfer volume in no-actor mode.
	VolumeUSD float64

	TransferCount int // all records, priced or not
	PricedCount   int // records whose USD magnitude parsed

	Participants     []Participant // ranked by volume descending
	Counterparties   []Participant // Participants minus the actor
	Tokens           []TokenFlow   // ranked by USD descending
	Series           []Point       // downsampled flow series
	NetByParticipant []Participant // selected per the net-flow rule
}

// Participant is one address's ledger within the batch.
type Participant struct {
	Address   string
	InUSD     float64 // sum where participant is recipient
	OutUSD    float64 // sum where participant is sender
	NetUSD    float64
	VolumeUSD float64
	Transfers int
}

// TokenFlow is accumulated USD and transfer count for one token.
type TokenFlow struct {
	Label     string
	USD       float64
	Transfers int
}

// Point is one series sample. Index is the transfer's position in the input
// batch, so a charted point can be traced back to its asset-change record
// even when unpriced or non-actor records sit between samples.
type Point struct {
	Index int
	Value float64
}

// Aggregate summarizes asset changes. actor, when non-empty, is the focal
// address: totals become actor-relative and the series tracks the running
// cumulative net. maxPoints bounds the series (DefaultMaxPoints when <= 0).
func Aggregate(changes []domain.AssetChange, actor string, maxPoints int) *Summary {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	actorKey := strings.ToLower(actor)

	s := &Summary{}
	ledger := make(map[string]*Participant)
	tokens := make(map[string]*TokenFlow)
	var series []Point
	cumulative := 0.0

	for _, c := range changes {
		s.TransferCount++

		from := strings.ToLower(c.From)
		to := strings.ToLower(c.To)

		usd, priced := parseUSD(c.DollarValue)
		if priced {
			s.PricedCount++
		}

		// Count-based aggregates include unpriced records; monetary sums
		// only take priced ones.
		participantLeg(ledger, from, -usd, priced)
		participantLeg(ledger, to, usd, priced)
		tokenLeg(tokens, tokenLabel(c.AssetInfo), usd, priced)

		if !priced {
			continue
		}

		if actorKey != "" {
			delta := 0.0
			if to == actorKey {
				s.ReceivedUSD += usd
				delta += usd
			}
			if from == actorKey {
				s.SentUSD += usd
				delta -= usd
			}
			if to != actorKey && from != actorKey {
				continue
			}
			cumulative += delta
			series = append(series, Point{Index: s.TransferCount - 1, Value: cumulative})
		} else {
			s.VolumeUSD += usd
			series = append(series, Point{Index: s.TransferCount - 1, Value: usd})
		}
	}

	s.NetUSD = s.ReceivedUSD - s.SentUSD
	s.Series = Downsample(series, maxPoints)

	for _, p := range ledger {
		p.NetUSD = p.InUSD - p.OutUSD
		p.VolumeUSD = p.InUSD + p.OutUSD
		s.Participants = append(s.Participants, *p)
	}
	sort.Slice(s.Participants, func(i, j int) bool {
		if s.Participants[i].VolumeUSD != s.Participants[j].VolumeUSD {
			return s.Participants[i].VolumeUSD > s.Participants[j].VolumeUSD
		}
		return s.Participants[i].Address < s.Participants[j].Address
	})

	for _, p := range s.Participants {
		if actorKey != "" && p.Address == actorKey {
			continue
		}
		s.Counterparties = append(s.Counterparties, p)
	}

	for _, t := range tokens {
		s.Tokens = append(s.Tokens, *t)
	}
	sort.Slice(s.Tokens, func(i, j int) bool {
		if s.Tokens[i].USD != s.Tokens[j].USD {
			return s.Tokens[i].USD > s.Tokens[j].USD
		}
		return s.Tokens[i].Label < s.Tokens[j].Label
	})

	s.NetByParticipant = selectNetFlows(s.Participants)

	return s
}

// Downsample reduces a series to at most k points by stride sampling over
// evenly spaced indices, preserving the overall shape and both endpoints.
// The result length is always min(len(points), k).
func Downsample(points []Point, k int) []Point {
	if k <= 0 || len(points) == 0 {
		return nil
	}
	if len(points) <= k {
		out := make([]Point, len(points))
		copy(out, points)
		return out
	}
	if k == 1 {
		return []Point{points[len(points)-1]}
	}
	out := make([]Point, 0, k)
	for j := 0; j < k; j++ {
		idx := j * (len(points) - 1) / (k - 1)
		out = append(out, points[idx])
	}
	return out
}

// selectNetFlows keeps every participant with non-trivial net flow unless
// there are more than twelve, in which case the six most positive and six
// most negative survive.
func selectNetFlows(participants []Participant) []Participant {
	var nontrivial []Participant
	for _, p := range participants {
		if math.Abs(p.NetUSD) > netFlowEpsilon {
			nontrivial = append(nontrivial, p)
		}
	}
	if len(nontrivial) <= netFlowLimit {
		return nontrivial
	}

	sort.Slice(nontrivial, func(i, j int) bool {
		if nontrivial[i].NetUSD != nontrivial[j].NetUSD {
			return nontrivial[i].NetUSD > nontrivial[j].NetUSD
		}
		return nontrivial[i].Address < nontrivial[j].Address
	})

	var kept []Participant
	for i := 0; i < netFlowPerSide && i < len(nontrivial); i++ {
		if nontrivial[i].NetUSD <= 0 {
			break
		}
		kept = append(kept, nontrivial[i])
	}
	for i := len(nontrivial) - netFlowPerSide; i < len(nontrivial); i++ {
		if i < 0 || nontrivial[i].NetUSD >= 0 {
			continue
		}
		kept = append(kept, nontrivial[i])
	}
	return kept
}

func participantLeg(ledger map[string]*Participant, addr string, usd float64, priced bool) {
	if addr == "" {
		return
	}
	p, ok := ledger[addr]
	if !ok {
		p = &Participant{Address: addr}
		ledger[addr] = p
	}
	p.Transfers++
	if !priced {
		return
	}
	if usd >= 0 {
		p.InUSD += usd
	} else {
		p.OutUSD += -usd
	}
}

func tokenLeg(tokens map[string]*TokenFlow, label string, usd float64, priced bool) {
	t, ok := tokens[label]
	if !ok {
		t = &TokenFlow{Label: label}
		tokens[label] = t
	}
	t.Transfers++
	if priced {
		t.USD += usd
	}
}

// tokenLabel falls back from symbol to name to "Unknown".
func tokenLabel(info *domain.AssetInfo) string {
	if info != nil {
		if info.Symbol != "" {
			return info.Symbol
		}
		if info.Name != "" {
			return info.Name
		}
	}
	return unknownTokenKey
}

// parseUSD accepts only a parseable non-negative finite magnitude.
func parseUSD(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
