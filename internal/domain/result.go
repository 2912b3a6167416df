package domain

// SimulationResult is the canonical shape every downstream consumer relies
// on, regardless of the upstream service's actual response layout. Produced
// once by the normalizer; never mutated afterwards.
type SimulationResult struct {
	Status          Status           `json:"status"`
	GasUsed         Quantity         `json:"gasUsed"`
	BlockNumber     Quantity         `json:"blockNumber,omitempty"`
	Nonce           Quantity         `json:"nonce,omitempty"`
	Trace           []TraceEntry     `json:"trace,omitempty"`
	Logs            []LogEntry       `json:"logs,omitempty"`
	StateChanges    []StateChange    `json:"stateChanges,omitempty"`
	AssetChanges    []AssetChange    `json:"assetChanges,omitempty"`
	ExposureChanges []ExposureChange `json:"exposureChanges,omitempty"`
	BalanceChanges  []BalanceChange  `json:"balanceChanges,omitempty"`
	AccessList      AccessList       `json:"accessList,omitempty"`
}

// AccessList maps a contract address to the storage keys touched under it.
// Keys are kept sorted and de-duplicated for deterministic output.
type AccessList map[string][]string
