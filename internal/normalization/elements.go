package normalization

import (
	"sort"
	"strconv"

	"tx-forecast-lab/internal/domain"
)

// Element normalizers. Each accepts one raw collection element and applies
// the same multi-spelling reconciliation the top level uses. A false return
// drops the element without aborting the surrounding collection.

func normalizeTraceEntry(m map[string]any) (domain.TraceEntry, bool) {
	e := domain.TraceEntry{
		TraceAddress: normalizePath(field(m, "traceAddress", "trace_address")),
		CallType:     stringField(m, "callType", "call_type", "type"),
		From:         stringField(m, "from"),
		To:           stringField(m, "to"),
		Method:       stringField(m, "method", "functionName", "function_name"),
		Error:        stringField(m, "error", "errorMessage", "error_message"),
	}
	if v := field(m, "gasUsed", "gas_used"); v != nil {
		e.GasUsed, _ = domain.ParseQuantity(v)
	}
	if v := field(m, "decodedInput", "decoded_input"); v != nil {
		e.DecodedInput = normalizeCollection(v, normalizeCallParam)
	}
	if v := field(m, "decodedOutput", "decoded_output"); v != nil {
		e.DecodedOutput = normalizeCollection(v, normalizeCallParam)
	}
	return e, true
}

func normalizeCallParam(m map[string]any) (domain.CallParam, bool) {
	return domain.CallParam{
		Name:  stringField(m, "name"),
		Type:  stringField(m, "type", "soltype"),
		Value: field(m, "value"),
	}, true
}

func normalizeLogEntry(m map[string]any) (domain.LogEntry, bool) {
	e := domain.LogEntry{
		Name:    stringField(m, "name"),
		Address: stringField(m, "address", "contractAddress", "contract_address"),
	}
	if v := field(m, "params", "inputs"); v != nil {
		e.Params = normalizeCollection(v, normalizeLogParam)
	}
	if raw, ok := field(m, "raw", "raw_log").(map[string]any); ok {
		e.Raw = &domain.RawLog{
			Address: stringField(raw, "address"),
			Topics:  stringSlice(field(raw, "topics")),
			Data:    stringField(raw, "data"),
		}
	}
	return e, true
}

func normalizeLogParam(m map[string]any) (domain.LogParam, bool) {
	p := domain.LogParam{
		Name:  stringField(m, "name"),
		Type:  stringField(m, "type", "soltype"),
		Value: field(m, "value"),
	}
	if v, ok := field(m, "indexed", "is_indexed").(bool); ok {
		p.Indexed = v
	}
	return p, true
}

func normalizeStateChange(m map[string]any) (domain.StateChange, bool) {
	return domain.StateChange{
		Address:       stringField(m, "address", "contractAddress", "contract_address"),
		Key:           stringField(m, "key", "slot"),
		PreviousValue: field(m, "previousValue", "previous_value", "original"),
		NewValue:      field(m, "newValue", "new_value", "dirty"),
	}, true
}

func normalizeAssetChange(m map[string]any) (domain.AssetChange, bool) {
	c := domain.AssetChange{
		Type:        stringField(m, "type"),
		From:        stringField(m, "from"),
		To:          stringField(m, "to"),
		Amount:      stringField(m, "amount"),
		DollarValue: moneyField(m, "dollarValue", "dollar_value"),
		AssetInfo:   normalizeAssetInfo(field(m, "assetInfo", "asset_info", "tokenInfo", "token_info")),
	}
	if v := field(m, "rawAmount", "raw_amount"); v != nil {
		c.RawAmount, _ = domain.ParseQuantity(v)
	}
	return c, true
}

func normalizeExposureChange(m map[string]any) (domain.ExposureChange, bool) {
	c := domain.ExposureChange{
		Owner:       stringField(m, "owner"),
		Spender:     stringField(m, "spender"),
		Amount:      stringField(m, "amount"),
		DollarValue: moneyField(m, "dollarValue", "dollar_value"),
		AssetInfo:   normalizeAssetInfo(field(m, "assetInfo", "asset_info", "tokenInfo", "token_info")),
	}
	if v := field(m, "rawAmount", "raw_amount"); v != nil {
		c.RawAmount, _ = domain.ParseQuantity(v)
	}
	return c, true
}

func normalizeBalanceChange(m map[string]any) (domain.BalanceChange, bool) {
	c := domain.BalanceChange{
		Address:     stringField(m, "address"),
		DollarValue: moneyField(m, "dollarValue", "dollar_value"),
	}
	if arr, ok := field(m, "transfers").([]any); ok {
		for _, v := range arr {
			if f, ok := v.(float64); ok && f >= 0 {
				c.Transfers = append(c.Transfers, int(f))
			}
		}
	}
	return c, true
}

func normalizeAssetInfo(v any) *domain.AssetInfo {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	info := &domain.AssetInfo{
		ContractAddress: stringField(m, "contractAddress", "contract_address"),
		Symbol:          stringField(m, "symbol"),
		Name:            stringField(m, "name"),
		Logo:            stringField(m, "logo", "logoUrl", "logo_url"),
	}
	if f, ok := field(m, "decimals").(float64); ok && f >= 0 {
		info.Decimals = int(f)
	}
	return info
}

// normalizeAccessList accepts both upstream shapes: an array of
// {address, storage_keys} entries or a direct address→keys map. Keys are
// sorted and de-duplicated per address.
func normalizeAccessList(v any) domain.AccessList {
	out := domain.AccessList{}
	switch t := v.(type) {
	case []any:
		for _, el := range t {
			m, ok := el.(map[string]any)
			if !ok {
				continue
			}
			addr := stringField(m, "address", "contractAddress", "contract_address")
			if addr == "" {
				continue
			}
			out[addr] = mergeKeys(out[addr], stringSlice(field(m, "storageKeys", "storage_keys")))
		}
	case map[string]any:
		for addr, keys := range t {
			out[addr] = mergeKeys(out[addr], stringSlice(keys))
		}
	default:
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeKeys(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	merged := make([]string, 0, len(existing)+len(added))
	for _, k := range existing {
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			merged = append(merged, k)
		}
	}
	for _, k := range added {
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			merged = append(merged, k)
		}
	}
	sort.Strings(merged)
	return merged
}

// normalizePath converts a raw trace address into an int path. Missing or
// non-array paths become the empty path (a root frame).
func normalizePath(v any) []int {
	arr, ok := v.([]any)
	if !ok {
		return []int{}
	}
	path := make([]int, 0, len(arr))
	for _, el := range arr {
		f, ok := el.(float64)
		if !ok || f < 0 {
			return []int{}
		}
		path = append(path, int(f))
	}
	return path
}

// field returns the first non-nil value among the candidate spellings.
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

// moneyField coerces a USD magnitude to its string form; upstream sends both
// strings and bare numbers.
func moneyField(m map[string]any, names ...string) string {
	switch t := field(m, names...).(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
