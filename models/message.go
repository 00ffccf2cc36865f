package models

import (
	"encoding/json"
	"time"
)

// MessageType classifies an inter-agent message
type MessageType string

const (
	MessageNewOrder     MessageType = "NEW_ORDER"
	MessageStatusUpdate MessageType = "STATUS_UPDATE"
	MessageError        MessageType = "ERROR"
	MessageCompletion   MessageType = "COMPLETION"
)

// ValidMessageType reports whether t is a recognized message type.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageNewOrder, MessageStatusUpdate, MessageError, MessageCompletion:
		return true
	}
	return false
}

// AgentMessage is the envelope for inter-agent communication. Every message
// must be signed by its sender before a recipient accepts it; the signature
// covers the canonical serialization of the content fields, so any mutation
// after signing invalidates verification.
type AgentMessage struct {
	Type      MessageType `json:"type"`
	OrderID   string      `json:"order_id"`
	Payload   string      `json:"payload"`
	Timestamp int64       `json:"timestamp"`
	Signature string      `json:"signature,omitempty"`
}

// NewAgentMessage builds an unsigned message stamped with the current time.
func NewAgentMessage(msgType MessageType, orderID, payload string) *AgentMessage {
	return &AgentMessage{
		Type:      msgType,
		OrderID:   orderID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Validate checks the structural requirements of the envelope.
func (m *AgentMessage) Validate() error {
	if !ValidMessageType(m.Type) {
		return NewFormatError("invalid message type: %s", m.Type)
	}
	if m.OrderID == "" {
		return NewFormatError("order ID is required")
	}
	if m.Timestamp == 0 {
		return NewFormatError("timestamp is required")
	}
	return nil
}

// SignableBytes returns the canonical serialization the signature covers.
// The field order is fixed by the struct definition, so equal content always
// produces equal bytes.
func (m *AgentMessage) SignableBytes() []byte {
	canonical := struct {
		Type      MessageType `json:"type"`
		OrderID   string      `json:"order_id"`
		Payload   string      `json:"payload"`
		Timestamp int64       `json:"timestamp"`
	}{m.Type, m.OrderID, m.Payload, m.Timestamp}

	data, _ := json.Marshal(canonical)
	return data
}
