package normalization

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tx-forecast-lab/internal/domain"
)

func mustNormalize(t *testing.T, payload string) *domain.SimulationResult {
	t.Helper()
	res, err := NormalizeJSON([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestNormalize_ResultEnvelope(t *testing.T) {
	// Fields reachable through the result wrapper, snake_case throughout.
	res := mustNormalize(t, `{
		"result": {
			"gas_used": "0x64",
			"status": true,
			"call_trace": [
				{"trace_address": [], "gas_used": "0x64"},
				{"trace_address": [0], "gas_used": "0x32"}
			]
		}
	}`)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, "0x64", res.GasUsed.String())
	assert.Equal(t, uint64(100), res.GasUsed.Uint64())

	require.Len(t, res.Trace, 2)
	assert.Empty(t, res.Trace[0].TraceAddress)
	assert.Equal(t, []int{0}, res.Trace[1].TraceAddress)
	assert.Equal(t, uint64(50), res.Trace[1].GasUsed.Uint64())
}

func TestNormalize_EnvelopeSiblingMerge(t *testing.T) {
	// Siblings other than jsonrpc/id merge into result; result wins on
	// conflict.
	res := mustNormalize(t, `{
		"jsonrpc": "2.0",
		"id": 7,
		"block_number": 123,
		"gas_used": "999",
		"result": {"gas_used": "21000", "status": false}
	}`)

	assert.Equal(t, domain.StatusReverted, res.Status)
	assert.Equal(t, uint64(21000), res.GasUsed.Uint64())
	assert.Equal(t, uint64(123), res.BlockNumber.Uint64())
}

func TestNormalize_NestedScopePriority(t *testing.T) {
	// Root beats simulation beats transaction.transaction_info.
	res := mustNormalize(t, `{
		"simulation": {"gas_used": 500, "status": true},
		"transaction": {"transaction_info": {"gas_used": 900, "logs": [{"name": "Transfer"}]}}
	}`)

	assert.Equal(t, uint64(500), res.GasUsed.Uint64())
	assert.Equal(t, domain.StatusSuccess, res.Status)
	require.Len(t, res.Logs, 1)
	assert.Equal(t, "Transfer", res.Logs[0].Name)
}

func TestNormalize_SharedScopeLast(t *testing.T) {
	res := mustNormalize(t, `{
		"simulation": {"shared": {"block_number": "0x10"}}
	}`)
	assert.Equal(t, uint64(16), res.BlockNumber.Uint64())
}

func TestNormalize_NonObjectRoot(t *testing.T) {
	for _, payload := range []string{`"not an object"`, `42`, `[1,2,3]`, `null`, `not json at all`} {
		res, err := NormalizeJSON([]byte(payload))
		assert.Nil(t, res, "payload %s", payload)
		assert.ErrorIs(t, err, ErrUnexpectedPayload, "payload %s", payload)
	}
}

func TestNormalize_FieldRenames(t *testing.T) {
	res := mustNormalize(t, `{
		"status": "reverted",
		"gas_used": "100",
		"logs": [{
			"name": "Approval",
			"contract_address": "0xToken",
			"inputs": [{"name": "owner", "soltype": "address", "is_indexed": true, "value": "0xabc"}],
			"raw_log": {"address": "0xToken", "topics": ["0x1"], "data": "0x"}
		}],
		"state_changes": [{"contract_address": "0xC", "previous_value": "0x0", "new_value": "0x1"}],
		"asset_changes": [{
			"from": "0xA", "to": "0xB",
			"dollar_value": "12.5", "raw_amount": "1000",
			"asset_info": {"contract_address": "0xT", "symbol": "USDC", "decimals": 6, "logo_url": "http://x"}
		}],
		"exposure_changes": [{"owner": "0xA", "spender": "0xS", "dollar_value": 3}],
		"balance_changes": [{"address": "0xA", "dollar_value": "7", "transfers": [0, 1]}]
	}`)

	assert.Equal(t, domain.StatusReverted, res.Status)

	require.Len(t, res.Logs, 1)
	log := res.Logs[0]
	assert.Equal(t, "0xToken", log.Address)
	require.Len(t, log.Params, 1)
	assert.True(t, log.Params[0].Indexed)
	assert.Equal(t, "address", log.Params[0].Type)
	require.NotNil(t, log.Raw)
	assert.Equal(t, []string{"0x1"}, log.Raw.Topics)

	require.Len(t, res.StateChanges, 1)
	assert.Equal(t, "0xC", res.StateChanges[0].Address)
	assert.Equal(t, "0x0", res.StateChanges[0].PreviousValue)
	assert.Equal(t, "0x1", res.StateChanges[0].NewValue)

	require.Len(t, res.AssetChanges, 1)
	ac := res.AssetChanges[0]
	assert.Equal(t, "12.5", ac.DollarValue)
	assert.Equal(t, uint64(1000), ac.RawAmount.Uint64())
	require.NotNil(t, ac.AssetInfo)
	assert.Equal(t, "USDC", ac.AssetInfo.Symbol)
	assert.Equal(t, 6, ac.AssetInfo.Decimals)
	assert.Equal(t, "http://x", ac.AssetInfo.Logo)

	require.Len(t, res.ExposureChanges, 1)
	assert.Equal(t, "3", res.ExposureChanges[0].DollarValue)

	require.Len(t, res.BalanceChanges, 1)
	assert.Equal(t, []int{0, 1}, res.BalanceChanges[0].Transfers)
}

func TestNormalize_MalformedElementsSkipped(t *testing.T) {
	res := mustNormalize(t, `{
		"status": true,
		"call_trace": [
			"not an object",
			42,
			{"trace_address": [0], "gas_used": "10"},
			null
		],
		"asset_changes": [17, {"from": "0xA", "to": "0xB"}]
	}`)

	require.Len(t, res.Trace, 1)
	assert.Equal(t, uint64(10), res.Trace[0].GasUsed.Uint64())
	require.Len(t, res.AssetChanges, 1)
}

func TestNormalize_MissingPathBecomesRoot(t *testing.T) {
	res := mustNormalize(t, `{"trace": [{"gas_used": "5"}, {"trace_address": "bogus", "gas_used": "6"}]}`)
	require.Len(t, res.Trace, 2)
	assert.Empty(t, res.Trace[0].TraceAddress)
	assert.Empty(t, res.Trace[1].TraceAddress)
}

func TestNormalize_AccessListShapes(t *testing.T) {
	// Array-of-entries shape.
	res := mustNormalize(t, `{
		"access_list": [
			{"address": "0xa", "storage_keys": ["0x2", "0x1", "0x2"]},
			{"address": "0xb", "storage_keys": []}
		]
	}`)
	require.NotNil(t, res.AccessList)
	assert.Equal(t, []string{"0x1", "0x2"}, res.AccessList["0xa"])

	// Direct map shape.
	res = mustNormalize(t, `{"accessList": {"0xa": ["0x3"], "0xb": ["0x9", "0x4"]}}`)
	assert.Equal(t, []string{"0x3"}, res.AccessList["0xa"])
	assert.Equal(t, []string{"0x4", "0x9"}, res.AccessList["0xb"])
}

func TestNormalize_Idempotent(t *testing.T) {
	first := mustNormalize(t, `{
		"result": {
			"gas_used": "0x5208",
			"status": true,
			"block_number": 19000000,
			"call_trace": [
				{"trace_address": [], "gas_used": "0x5208", "from": "0xA", "to": "0xB",
				 "decoded_input": [{"name": "amount", "soltype": "uint256", "value": "1"}]},
				{"trace_address": [0], "gas_used": "0x1000", "error": "revert: nope"}
			],
			"asset_changes": [{"from": "0xA", "to": "0xB", "dollar_value": "10", "asset_info": {"symbol": "WETH"}}],
			"access_list": [{"address": "0xa", "storage_keys": ["0x1"]}]
		}
	}`)

	encoded, err := json.Marshal(first)
	require.NoError(t, err)

	second, err := NormalizeJSON(encoded)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalize_StatusVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Status
	}{
		{`{"status": true}`, domain.StatusSuccess},
		{`{"status": false}`, domain.StatusReverted},
		{`{"status": "success"}`, domain.StatusSuccess},
		{`{"status": "failed"}`, domain.StatusReverted},
		{`{"status": "???"}`, domain.StatusUnknown},
		{`{}`, domain.StatusUnknown},
	}
	for _, tt := range tests {
		res := mustNormalize(t, tt.raw)
		assert.Equal(t, tt.want, res.Status, "payload %s", tt.raw)
	}
}
