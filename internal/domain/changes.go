package domain

// StateChange records one storage slot transition.
type StateChange struct {
	Address       string `json:"address,omitempty"`
	Key           string `json:"key,omitempty"`
	PreviousValue any    `json:"previousValue,omitempty"`
	NewValue      any    `json:"newValue,omitempty"`
}

// AssetChange records one token or native-value transfer between two
// participants. Amount is the human-formatted magnitude; RawAmount the
// integer base-unit magnitude; DollarValue the optional USD equivalent.
type AssetChange struct {
	Type        string     `json:"type,omitempty"` // transfer | mint | burn
	From        string     `json:"from,omitempty"`
	To          string     `json:"to,omitempty"`
	Amount      string     `json:"amount,omitempty"`
	RawAmount   Quantity   `json:"rawAmount,omitempty"`
	DollarValue string     `json:"dollarValue,omitempty"`
	AssetInfo   *AssetInfo `json:"assetInfo,omitempty"`
}

// ExposureChange records an approval/allowance delta granted by an owner to
// a spender.
type ExposureChange struct {
	Owner       string     `json:"owner,omitempty"`
	Spender     string     `json:"spender,omitempty"`
	Amount      string     `json:"amount,omitempty"`
	RawAmount   Quantity   `json:"rawAmount,omitempty"`
	DollarValue string     `json:"dollarValue,omitempty"`
	AssetInfo   *AssetInfo `json:"assetInfo,omitempty"`
}

// BalanceChange records the net balance movement of one address, with
// indices into the asset-change list that produced it.
type BalanceChange struct {
	Address     string `json:"address,omitempty"`
	DollarValue string `json:"dollarValue,omitempty"`
	Transfers   []int  `json:"transfers,omitempty"`
}

// AssetInfo is optional token metadata attached to a change record.
type AssetInfo struct {
	ContractAddress string `json:"contractAddress,omitempty"`
	Symbol          string `json:"symbol,omitempty"`
	Name            string `json:"name,omitempty"`
	Decimals        int    `json:"decimals,omitempty"`
	Logo            string `json:"logo,omitempty"`
}
