// Package normalization turns arbitrary upstream simulation payloads into
// the canonical result schema. The upstream service answers with several
// layouts (JSON-RPC envelope or direct object, camelCase or snake_case,
// fields at the root or nested under simulation/transaction); downstream
// code only ever sees domain.SimulationResult.
package normalization

import (
	"encoding/json"
	"errors"

	"tx-forecast-lab/internal/domain"
)

// ErrUnexpectedPayload is returned when the root payload is not a structured
// object. Callers must surface this as a user-visible failure.
var ErrUnexpectedPayload = errors.New("unexpected simulation payload")

// NormalizeJSON decodes raw response bytes and normalizes the result.
func NormalizeJSON(data []byte) (*domain.SimulationResult, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrUnexpectedPayload
	}
	return Normalize(raw)
}

// Normalize converts a decoded JSON document into the canonical result.
// Pure function of its input: the document is never mutated. Normalizing an
// already-canonical result is a no-op (every field is found at first
// priority and copied unchanged).
func Normalize(raw any) (*domain.SimulationResult, error) {
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrUnexpectedPayload
	}
	root = unwrapEnvelope(root)

	sc := buildScopes(root)

	res := &domain.SimulationResult{
		Status:      normalizeStatus(sc.lookup("status")),
		GasUsed:     lookupQuantity(sc, "gasUsed", "gas_used"),
		BlockNumber: lookupQuantity(sc, "blockNumber", "block_number"),
		Nonce:       lookupQuantity(sc, "nonce"),
	}

	if v := sc.lookup("trace", "callTrace", "call_trace"); v != nil {
		res.Trace = normalizeCollection(v, normalizeTraceEntry)
	}
	if v := sc.lookup("logs"); v != nil {
		res.Logs = normalizeCollection(v, normalizeLogEntry)
	}
	if v := sc.lookup("stateChanges", "state_changes", "stateDiff", "state_diff"); v != nil {
		res.StateChanges = normalizeCollection(v, normalizeStateChange)
	}
	if v := sc.lookup("assetChanges", "asset_changes"); v != nil {
		res.AssetChanges = normalizeCollection(v, normalizeAssetChange)
	}
	if v := sc.lookup("exposureChanges", "exposure_changes"); v != nil {
		res.ExposureChanges = normalizeCollection(v, normalizeExposureChange)
	}
	if v := sc.lookup("balanceChanges", "balance_changes"); v != nil {
		res.BalanceChanges = normalizeCollection(v, normalizeBalanceChange)
	}
	if v := sc.lookup("accessList", "access_list", "generatedAccessList", "generated_access_list"); v != nil {
		res.AccessList = normalizeAccessList(v)
	}

	return res, nil
}

// unwrapEnvelope detects a JSON-RPC style envelope and extracts its result
// object. Top-level siblings other than jsonrpc/id are merged into the
// result, with the result's own fields taking precedence on conflict.
func unwrapEnvelope(root map[string]any) map[string]any {
	result, ok := root["result"].(map[string]any)
	if !ok {
		return root
	}

	merged := make(map[string]any, len(root)+len(result))
	for k, v := range root {
		switch k {
		case "jsonrpc", "id", "result":
			continue
		}
		merged[k] = v
	}
	for k, v := range result {
		merged[k] = v
	}
	return merged
}

// scopes is the ordered list of objects a logical field may live in.
type scopes []map[string]any

// buildScopes collects the nested objects to search, in priority order:
// root, simulation, transaction, transaction.transaction_info,
// simulation.shared.
func buildScopes(root map[string]any) scopes {
	sc := scopes{root}
	sim := childObject(root, "simulation")
	if sim != nil {
		sc = append(sc, sim)
	}
	if tx := childObject(root, "transaction"); tx != nil {
		sc = append(sc, tx)
		if info := childObject(tx, "transaction_info", "transactionInfo"); info != nil {
			sc = append(sc, info)
		}
	}
	if sim != nil {
		if shared := childObject(sim, "shared"); shared != nil {
			sc = append(sc, shared)
		}
	}
	return sc
}

// lookup returns the first non-nil value found for any of the candidate
// spellings, scanning scopes outermost-first.
func (sc scopes) lookup(names ...string) any {
	for _, obj := range sc {
		for _, name := range names {
			if v, ok := obj[name]; ok && v != nil {
				return v
			}
		}
	}
	return nil
}

func lookupQuantity(sc scopes, names ...string) domain.Quantity {
	v := sc.lookup(names...)
	if v == nil {
		return domain.Quantity{}
	}
	q, _ := domain.ParseQuantity(v)
	return q
}

func childObject(obj map[string]any, names ...string) map[string]any {
	for _, name := range names {
		if child, ok := obj[name].(map[string]any); ok {
			return child
		}
	}
	return nil
}

// normalizeStatus maps the upstream status field onto the tri-state.
func normalizeStatus(v any) domain.Status {
	switch t := v.(type) {
	case bool:
		if t {
			return domain.StatusSuccess
		}
		return domain.StatusReverted
	case string:
		switch t {
		case "true", "success", "ok", "1":
			return domain.StatusSuccess
		case "false", "reverted", "revert", "failed", "fail", "0":
			return domain.StatusReverted
		}
	}
	return domain.StatusUnknown
}

// normalizeCollection applies an element normalizer across a raw array,
// skipping malformed elements rather than aborting the whole collection.
func normalizeCollection[T any](v any, fn func(map[string]any) (T, bool)) []T {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]T, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		item, ok := fn(obj)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out
}
