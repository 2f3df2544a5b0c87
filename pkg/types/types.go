// Package domain defines the core types shared by the catalog poller,
// the state store, and the notification sinks.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownItemName is the display name used when enrichment fails.
const UnknownItemName = "Unknown Item"

// ItemID is an opaque catalog item identifier. Catalog APIs emit it either as
// a JSON number or a JSON string; both decode to the same textual form.
type ItemID string

// String returns the identifier text.
func (id ItemID) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id ItemID) IsZero() bool { return id == "" }

// IsNumeric reports whether the identifier is a non-negative decimal integer.
func (id ItemID) IsNumeric() bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Compare orders two identifiers. When both are numeric they are compared by
// value (any magnitude, so "10" sorts after "9"); otherwise lexically.
// It returns -1, 0 or +1.
func (id ItemID) Compare(other ItemID) int {
	if id.IsNumeric() && other.IsNumeric() {
		a := strings.TrimLeft(string(id), "0")
		b := strings.TrimLeft(string(other), "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	}
	return strings.Compare(string(id), string(other))
}

// Greater reports whether id sorts strictly after other.
func (id ItemID) Greater(other ItemID) bool {
	return id.Compare(other) > 0
}

// UnmarshalJSON accepts a JSON string or number.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// ItemSummary is one record of the featured-items listing. Raw holds every
// field of the source record, including those not mapped here.
type ItemSummary struct {
	ID   ItemID         `json:"id"`
	Name string         `json:"name"`
	Raw  map[string]any `json:"-"`
}

// ItemDetail is display metadata obtained by a secondary lookup.
type ItemDetail struct {
	Name            string `json:"name"`
	ImageURL        string `json:"image_url,omitempty"`
	Price           string `json:"price,omitempty"`
	IsLimitedUnique *bool  `json:"is_limited_unique,omitempty"`
}

// FallbackDetail is the placeholder used when enrichment fails.
func FallbackDetail() ItemDetail {
	return ItemDetail{Name: UnknownItemName}
}

// NotifierState is the persisted checkpoint of the poller.
type NotifierState struct {
	LastSeenItemID ItemID `json:"last_seen_item_id"`
}

// NotifyPolicy selects how many notifications a poll cycle may emit.
type NotifyPolicy string

// Notify policy constants.
const (
	// PolicyMostRecentOnly emits at most one notification per poll, for the
	// most recent unseen item.
	PolicyMostRecentOnly NotifyPolicy = "most-recent-only"
	// PolicyAllUnseen emits one notification per unseen item, oldest first.
	PolicyAllUnseen NotifyPolicy = "all-unseen"
)

// Valid reports whether p is a recognized policy.
func (p NotifyPolicy) Valid() bool {
	return p == PolicyMostRecentOnly || p == PolicyAllUnseen
}
