package domain

// TraceEntry is one recorded call frame of a simulated transaction.
// TraceAddress locates the frame in the call tree: the empty slice is a
// top-level call, and a path of length n is a child of the frame whose path
// is its length n-1 prefix.
type TraceEntry struct {
	TraceAddress  []int       `json:"traceAddress"`
	CallType      string      `json:"callType,omitempty"` // call | delegatecall | staticcall | create | ...
	From          string      `json:"from,omitempty"`
	To            string      `json:"to,omitempty"`
	Method        string      `json:"method,omitempty"`
	GasUsed       Quantity    `json:"gasUsed,omitempty"`
	DecodedInput  []CallParam `json:"decodedInput,omitempty"`
	DecodedOutput []CallParam `json:"decodedOutput,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// CallParam is one decoded input or output parameter of a call frame.
type CallParam struct {
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value,omitempty"`
}
