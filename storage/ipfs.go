// Package storage provides a content-addressed store modeled on IPFS.
// Content identifiers are base58-encoded sha256 multihashes, so equal
// content always resolves to the same CID.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"

	"taap-agent-system/models"
)

// NotFoundError reports a retrieval of an unknown CID.
type NotFoundError struct {
	CID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("content not found for CID: %s", e.CID)
}

// IPFS is an in-memory content-addressed store.
type IPFS struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewIPFS returns an empty store.
func NewIPFS() *IPFS {
	return &IPFS{objects: make(map[string][]byte)}
}

// Put stores content and returns its CID.
func (s *IPFS) Put(ctx context.Context, content models.Content) (string, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to encode content: %w", err)
	}

	digest := sha256.Sum256(data)
	// CIDv0 shape: multihash prefix (sha2-256, 32 bytes) + digest.
	cid := base58.Encode(append([]byte{0x12, 0x20}, digest[:]...))

	s.mu.Lock()
	s.objects[cid] = data
	s.mu.Unlock()
	return cid, nil
}

// Get retrieves the content stored under cid.
func (s *IPFS) Get(ctx context.Context, cid string) (models.Content, error) {
	s.mu.RLock()
	data, ok := s.objects[cid]
	s.mu.RUnlock()
	if !ok {
		return models.Content{}, &NotFoundError{CID: cid}
	}

	var content models.Content
	if err := json.Unmarshal(data, &content); err != nil {
		return models.Content{}, fmt.Errorf("failed to decode content %s: %w", cid, err)
	}
	return content, nil
}

// Has reports whether cid is stored.
func (s *IPFS) Has(cid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[cid]
	return ok
}

// TotalSize returns the total stored bytes.
func (s *IPFS) TotalSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, data := range s.objects {
		total += len(data)
	}
	return total
}
