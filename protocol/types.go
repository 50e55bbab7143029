package protocol

// NodeID is the identity record returned by the `id` command.
type NodeID struct {
	ID              string   `json:"ID"`
	PublicKey       string   `json:"PublicKey,omitempty"`
	Addresses       []string `json:"Addresses"`
	AgentVersion    string   `json:"AgentVersion,omitempty"`
	ProtocolVersion string   `json:"ProtocolVersion,omitempty"`
}

// AddedObject is a single record of the newline-delimited
// response of the `add` command.
type AddedObject struct {
	Name  string `json:"Name,omitempty"`
	Hash  string `json:"Hash,omitempty"`
	Bytes int64  `json:"Bytes,omitempty"`
	Size  string `json:"Size,omitempty"`
}

// PinResult is returned by `pin/add`.
type PinResult struct {
	Pins     []string `json:"Pins"`
	Progress int      `json:"Progress,omitempty"`
}

// ErrorResponse is the JSON body the daemon sends along with
// non-2xx responses.
type ErrorResponse struct {
	Message string `json:"Message"`
	Code    int    `json:"Code"`
	Type    string `json:"Type"`
}
