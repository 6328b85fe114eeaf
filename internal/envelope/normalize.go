// Package envelope reduces the backend's inconsistent success shapes to one
// canonical form. The generate, stored, and list endpoints are not
// guaranteed to share an envelope; this is the single seam that absorbs the
// difference so everything downstream sees one shape.
package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/shopstack/shopsync/internal/models"
)

// Item-list keys probed on a wrapped envelope, in priority order.
// The first present sequence wins.
var (
	RecommendationKeys = []string{"recommendations", "data"}
	ProductKeys        = []string{"products", "data"}
	BehaviorKeys       = []string{"behaviors", "data"}
)

// Envelope is the canonical post-normalization shape: a finite item list in
// server-declared order plus an optional explanation.
type Envelope struct {
	Items       []json.RawMessage
	Explanation string
}

// Normalize reduces an arbitrary JSON value to an Envelope.
//
// Rules, first match wins:
//  1. raw is an object and one of keys holds a sequence: that sequence.
//  2. raw itself is a sequence: used directly.
//  3. otherwise: empty item list.
//
// A top-level "explanation" string is preserved when present; otherwise
// defaultExplanation is retained unchanged. Normalize never invents text.
func Normalize(raw []byte, keys []string, defaultExplanation string) Envelope {
	env := Envelope{Explanation: defaultExplanation}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		for _, key := range keys {
			seq, ok := wrapped[key]
			if !ok {
				continue
			}
			var items []json.RawMessage
			if err := json.Unmarshal(seq, &items); err == nil {
				env.Items = items
				break
			}
		}

		if expl, ok := wrapped["explanation"]; ok {
			var s string
			if err := json.Unmarshal(expl, &s); err == nil {
				env.Explanation = s
			}
		}

		return env
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		env.Items = items
	}

	return env
}

// Decode unmarshals every item of an envelope into T, preserving order.
func Decode[T any](env Envelope) ([]T, error) {
	out := make([]T, 0, len(env.Items))
	for i, item := range env.Items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("failed to decode item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Recommendations normalizes a recommendation envelope and decodes it into
// the canonical RecommendationSet.
func Recommendations(raw []byte, defaultExplanation string) (models.RecommendationSet, error) {
	env := Normalize(raw, RecommendationKeys, defaultExplanation)
	recs, err := Decode[models.Recommendation](env)
	if err != nil {
		return models.RecommendationSet{}, err
	}
	return models.RecommendationSet{
		Recommendations: recs,
		Explanation:     env.Explanation,
	}, nil
}

// Products normalizes a catalog list response.
func Products(raw []byte) ([]models.CatalogItem, error) {
	return Decode[models.CatalogItem](Normalize(raw, ProductKeys, ""))
}

// Behaviors normalizes a behavior-log list response.
func Behaviors(raw []byte) ([]models.BehaviorRecord, error) {
	return Decode[models.BehaviorRecord](Normalize(raw, BehaviorKeys, ""))
}
