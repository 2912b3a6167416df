package domain

// LogEntry is one decoded event emitted during the simulation.
type LogEntry struct {
	Name    string     `json:"name,omitempty"`
	Address string     `json:"address,omitempty"`
	Params  []LogParam `json:"params,omitempty"`
	Raw     *RawLog    `json:"raw,omitempty"`
}

// LogParam is one decoded event parameter.
type LogParam struct {
	Name    string `json:"name,omitempty"`
	Type    string `json:"type,omitempty"`
	Indexed bool   `json:"indexed,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// RawLog is the undecoded form of an emitted event.
type RawLog struct {
	Address string   `json:"address,omitempty"`
	Topics  []string `json:"topics,omitempty"`
	Data    string   `json:"data,omitempty"`
}
