// Package models defines the data types shared across the sync client.
package models

// Action values accepted in a BehaviorRecord.
const (
	ActionView      = "view"
	ActionAddToCart = "add_to_cart"
	ActionPurchase  = "purchase"
)

// ValidAction reports whether s is one of the accepted behavior actions.
func ValidAction(s string) bool {
	return s == ActionView || s == ActionAddToCart || s == ActionPurchase
}

// TimestampLayout is the wire format for BehaviorRecord timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// CatalogItem is a single product row. ProductID is the natural key and is
// immutable after creation; the server is the source of truth for all fields.
type CatalogItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Rating    float64 `json:"rating"`
	Brand     string  `json:"brand"`
	Features  string  `json:"features"`

	// Unsynced marks a row whose last optimistic mutation failed remotely.
	// Cleared on the next successful refresh. Never sent on the wire.
	Unsynced bool `json:"-"`
}

// BehaviorRecord is one entry in the user-behavior log. StableID is the
// server-assigned identifier; without it the record cannot be safely
// targeted by an update or delete.
type BehaviorRecord struct {
	StableID  string `json:"_id,omitempty"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`

	Unsynced bool `json:"-"`
}

// HasStableID reports whether the record carries a server-assigned id.
func (b BehaviorRecord) HasStableID() bool {
	return b.StableID != ""
}

// Recommendation is one ranked entry in a recommendation envelope.
// SimilarityScore and OverallScore are in [0,1]; Rating is in [0,5].
type Recommendation struct {
	ProductID       string  `json:"product_id"`
	Name            string  `json:"name"`
	Brand           string  `json:"brand"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	Rating          float64 `json:"rating"`
	Features        string  `json:"features"`
	SimilarityScore float64 `json:"similarity_score"`
	OverallScore    float64 `json:"overall_score"`
}

// RecommendationSet is the canonical post-normalization shape every
// recommendation endpoint reduces to. Order is the server-declared rank.
type RecommendationSet struct {
	Recommendations []Recommendation `json:"recommendations"`
	Explanation     string           `json:"explanation,omitempty"`
}

// StagedFile is a validated file held client-side pending an explicit upload
// trigger. ID is unique for the session even when two files share a name.
// The stager owns staged files; the transport engine only borrows them.
type StagedFile struct {
	ID        string
	Name      string
	Path      string
	SizeBytes int64
}
