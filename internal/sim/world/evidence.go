package world

import (
	"strings"

	"courtroom.ai/internal/protocol"
)

// EvidenceLimit is the per-area capacity.
const EvidenceLimit = 35

type EvidenceItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Packet renders the item as one LE field.
func (e EvidenceItem) Packet() string {
	return strings.Join([]string{e.Name, e.Description, e.Image}, "&")
}

// EvidenceStore is an ordered, capacity-bounded list. Items are referenced
// by position.
type EvidenceStore struct {
	items []EvidenceItem
}

func (s *EvidenceStore) Len() int { return len(s.items) }

func (s *EvidenceStore) Items() []EvidenceItem {
	return append([]EvidenceItem(nil), s.items...)
}

func (s *EvidenceStore) Add(item EvidenceItem) error {
	if len(s.items) >= EvidenceLimit {
		return protocol.AreaError("There are too many pieces of evidence.")
	}
	s.items = append(s.items, item)
	return nil
}

func (s *EvidenceStore) Edit(idx int, item EvidenceItem) error {
	if idx < 0 || idx >= len(s.items) {
		return protocol.AreaError("Invalid evidence ID.")
	}
	s.items[idx] = item
	return nil
}

func (s *EvidenceStore) Delete(idx int) error {
	if idx < 0 || idx >= len(s.items) {
		return protocol.AreaError("Invalid evidence ID.")
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// ValidICRef reports whether an IC message may present evidence idx:
// 0 presents nothing, 1..Len name a stored item.
func (s *EvidenceStore) ValidICRef(idx int) bool {
	return idx >= 0 && idx <= len(s.items)
}

func (s *EvidenceStore) Packet() []string {
	out := make([]string, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it.Packet())
	}
	return out
}

// Replace installs items, truncating to capacity.
func (s *EvidenceStore) Replace(items []EvidenceItem) {
	if len(items) > EvidenceLimit {
		items = items[:EvidenceLimit]
	}
	s.items = append([]EvidenceItem(nil), items...)
}
