package domain

// Kind distinguishes the two sources of a history item.
type Kind string

const (
	KindExecution  Kind = "execution"
	KindSimulation Kind = "simulation"
)

// HistoryItem is one reconciled activity-feed entry. Created when a local
// execution completes or when a remote simulation listing is fetched; never
// mutated after creation.
type HistoryItem struct {
	Kind         Kind   `json:"kind"`
	Status       Status `json:"status"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	Value        string `json:"value,omitempty"` // human-formatted
	Calldata     string `json:"calldata,omitempty"`
	GasLimit     uint64 `json:"gasLimit,omitempty"`
	ChainID      string `json:"chainId,omitempty"`
	Timestamp    int64  `json:"timestamp"` // Unix milliseconds
	TxHash       string `json:"txHash,omitempty"`
	SimulationID string `json:"simulationId,omitempty"`
}

// ExecutionRecord is a locally recorded on-chain submission, supplied by the
// submission collaborator.
type ExecutionRecord struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Value     string `json:"value,omitempty"`
	Calldata  string `json:"calldata,omitempty"`
	GasLimit  uint64 `json:"gasLimit,omitempty"`
	ChainID   string `json:"chainId,omitempty"`
	TxHash    string `json:"txHash,omitempty"`
	Status    Status `json:"status,omitempty"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}
