// Package security provides the signing primitive for inter-agent messages
// and the per-address request rate limiter.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"taap-agent-system/models"
)

// Agent identifies a signing party
type Agent string

const (
	AgentOPA Agent = "OPA"
	AgentCPA Agent = "CPA"
)

// Signer signs and verifies agent messages with per-agent credentials. It is
// constructed and injected rather than held in package state, so each
// pipeline (and each test) owns its credentials.
type Signer struct {
	keys map[Agent][]byte
}

// NewSigner returns a signer loaded with the mock credentials for both
// agents.
func NewSigner() *Signer {
	return &Signer{
		keys: map[Agent][]byte{
			AgentOPA: []byte("opa-mock-private-key"),
			AgentCPA: []byte("cpa-mock-private-key"),
		},
	}
}

// Register installs a credential for an agent, replacing any existing one.
func (s *Signer) Register(agent Agent, key []byte) {
	s.keys[agent] = key
}

// Sign computes the signature over the message's canonical serialization
// using the sender's credential, sets it on the message, and returns the
// message.
func (s *Signer) Sign(agent Agent, msg *models.AgentMessage) (*models.AgentMessage, error) {
	key, ok := s.keys[agent]
	if !ok {
		return nil, fmt.Errorf("no credential registered for agent %s", agent)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	msg.Signature = signature(key, msg.SignableBytes())
	return msg, nil
}

// Verify recomputes the expected signature under the claimed identity and
// compares. It returns false for unsigned messages, unknown identities, and
// any content mutation after signing; it never returns an error.
func (s *Signer) Verify(agent Agent, msg *models.AgentMessage) bool {
	if msg == nil || msg.Signature == "" {
		return false
	}
	key, ok := s.keys[agent]
	if !ok {
		return false
	}
	expected := signature(key, msg.SignableBytes())
	return hmac.Equal([]byte(expected), []byte(msg.Signature))
}

func signature(key, payload []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
