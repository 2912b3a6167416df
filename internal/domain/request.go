package domain

// Simulation type constants accepted by the upstream provider.
const (
	SimulationTypeFull  = "full"
	SimulationTypeQuick = "quick"
	SimulationTypeABI   = "abi"
)

// SimulationRequest is the request body sent to the upstream simulation
// provider. Field names follow the provider's wire convention.
type SimulationRequest struct {
	Save           bool   `json:"save"`
	SaveIfFails    bool   `json:"save_if_fails,omitempty"`
	SimulationType string `json:"simulation_type"`
	NetworkID      string `json:"network_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	Input          string `json:"input"`
	Gas            uint64 `json:"gas,omitempty"`
	Value          string `json:"value,omitempty"`
}
