// Package history merges locally recorded executions with remotely listed
// simulations into one chronologically ordered activity feed, tolerating the
// upstream service's several field-naming conventions.
package history

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"tx-forecast-lab/internal/domain"
)

// LocalExecutionCap is the retention cap on locally recorded executions:
// only the 50 most recent enter the merged feed. Remote simulations are not
// capped here.
const LocalExecutionCap = 50

// millisecondCutoff separates second-resolution from millisecond-resolution
// numeric timestamps: anything under 10 billion is whole seconds.
const millisecondCutoff = 1e10

// Reconciler builds the merged activity feed.
type Reconciler struct {
	now func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the fallback timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates a reconciler with the given options.
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Merge converts each remote simulation record independently, joins it with
// the capped local executions and sorts the feed by timestamp descending.
// A remote record lacking a derivable simulation identifier or destination
// address is dropped, never failing the whole merge.
func (r *Reconciler) Merge(remote []any, local []domain.ExecutionRecord) []domain.HistoryItem {
	items := make([]domain.HistoryItem, 0, len(remote)+len(local))

	for _, raw := range remote {
		item, ok := r.convertRemote(raw)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	for _, exec := range capLocal(local) {
		status := exec.Status
		if !status.IsValid() || status == "" {
			status = domain.StatusUnknown
		}
		items = append(items, domain.HistoryItem{
			Kind:      domain.KindExecution,
			Status:    status,
			From:      exec.From,
			To:        exec.To,
			Value:     exec.Value,
			Calldata:  exec.Calldata,
			GasLimit:  exec.GasLimit,
			ChainID:   exec.ChainID,
			Timestamp: exec.Timestamp,
			TxHash:    exec.TxHash,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
	return items
}

// convertRemote maps one raw remote simulation record onto a HistoryItem.
func (r *Reconciler) convertRemote(raw any) (domain.HistoryItem, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.HistoryItem{}, false
	}

	id := identifierField(m, "id", "simulation_id", "simulationId")
	to := stringField(m, "to", "to_address", "toAddress")
	if id == "" || to == "" {
		return domain.HistoryItem{}, false
	}

	item := domain.HistoryItem{
		Kind:         domain.KindSimulation,
		Status:       remoteStatus(m),
		From:         stringField(m, "from", "from_address", "fromAddress"),
		To:           to,
		Value:        DecodeValue(field(m, "value")),
		Calldata:     stringField(m, "input", "calldata", "data"),
		ChainID:      stringField(m, "network_id", "networkId", "chain_id", "chainId"),
		Timestamp:    r.decodeTimestamp(field(m, "created_at", "createdAt", "timestamp", "time")),
		TxHash:       stringField(m, "hash", "tx_hash", "txHash", "transaction_hash", "transactionHash"),
		SimulationID: id,
	}
	if q, ok := domain.ParseQuantity(field(m, "gas", "gas_limit", "gasLimit")); ok {
		item.GasLimit = q.Uint64()
	}
	return item, true
}

// remoteStatus derives the tri-state from a boolean field when present.
func remoteStatus(m map[string]any) domain.Status {
	if v, ok := field(m, "status", "success").(bool); ok {
		if v {
			return domain.StatusSuccess
		}
		return domain.StatusReverted
	}
	return domain.StatusUnknown
}

// decodeTimestamp accepts whole seconds (numbers under 10 billion),
// milliseconds (larger numbers) or calendar strings, falling back to the
// reconciler's clock when nothing usable is present.
func (r *Reconciler) decodeTimestamp(v any) int64 {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			break
		}
		if t < millisecondCutoff {
			return int64(t * 1000)
		}
		return int64(t)
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UnixMilli()
			}
		}
	}
	return r.now().UnixMilli()
}

// DecodeValue turns the upstream value field into a display string. The
// disambiguation is deliberately heuristic, kept for compatibility: an
// all-digit string is a wei-like integer and is converted to ether units;
// any other string is assumed already formatted and passed through; an
// integer-valued number takes the wei path, so a genuinely small integer
// ether amount would be misread as wei. Fractional numbers are stringified
// as-is.
func DecodeValue(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" && isAllDigits(t) {
			return weiToEther(t)
		}
		return t
	case float64:
		if t == math.Trunc(t) && t >= 0 {
			return weiToEther(strconv.FormatFloat(t, 'f', -1, 64))
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// weiToEther renders an all-digit wei string in ether units with trailing
// zeros trimmed.
func weiToEther(wei string) string {
	wei = strings.TrimLeft(wei, "0")
	if wei == "" {
		return "0"
	}
	if len(wei) <= 18 {
		frac := strings.Repeat("0", 18-len(wei)) + wei
		return trimFraction("0." + frac)
	}
	whole := wei[:len(wei)-18]
	return trimFraction(whole + "." + wei[len(wei)-18:])
}

func trimFraction(s string) string {
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// capLocal keeps the 50 most recent local executions.
func capLocal(local []domain.ExecutionRecord) []domain.ExecutionRecord {
	if len(local) <= LocalExecutionCap {
		return local
	}
	sorted := make([]domain.ExecutionRecord, len(local))
	copy(sorted, local)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	return sorted[:LocalExecutionCap]
}

func field(m map[string]any, names ...string) any {
	for _, name := range names {
		if v, ok := m[name]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(m map[string]any, names ...string) string {
	s, _ := field(m, names...).(string)
	return s
}

// identifierField also accepts numeric identifiers; some deployments send
// the simulation id as a bare JSON number.
func identifierField(m map[string]any, names ...string) string {
	switch t := field(m, names...).(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
