package domain

// MessageKind distinguishes node-targeted messages from registry broadcasts.
type MessageKind string

const (
	// MessageNode targets one UI node (castMessage, SendMessage).
	MessageNode MessageKind = "node"
	// MessageRegistry announces a controller mutation (load, hide, delete).
	MessageRegistry MessageKind = "registry"
)

// Message is what the engine hands to the rendering collaborator.
type Message struct {
	Kind     MessageKind `json:"kind"`
	NodeID   string      `json:"node_id,omitempty"`
	RootName string      `json:"root,omitempty"`
	Payload  any         `json:"payload,omitempty"`
}

// RegistryAction names a controller mutation carried by registry messages.
type RegistryAction string

const (
	ActionLoad   RegistryAction = "load"
	ActionShow   RegistryAction = "show"
	ActionHide   RegistryAction = "hide"
	ActionDelete RegistryAction = "delete"
)

// RegistryChange is the payload of MessageRegistry messages.
type RegistryChange struct {
	Action RegistryAction `json:"action"`
	Active string         `json:"active"`
	Stack  []string       `json:"stack"`
}
