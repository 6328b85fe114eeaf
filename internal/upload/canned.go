package upload

import "github.com/shopstack/shopsync/internal/models"

// CannedEnvelope is the success payload mock mode resolves with. It exists
// so the rest of the client is demoable without the backend; the shape
// matches what the real generate endpoint produces.
func CannedEnvelope() models.RecommendationSet {
	return models.RecommendationSet{
		Recommendations: []models.Recommendation{
			{
				ProductID:       "P100",
				Name:            "Wireless Earbuds Pro",
				Brand:           "Acme",
				Category:        "Electronics",
				Price:           2499,
				Rating:          4.4,
				Features:        "bluetooth 5.3;noise cancellation;24h battery",
				SimilarityScore: 0.91,
				OverallScore:    0.87,
			},
			{
				ProductID:       "P204",
				Name:            "Portable Speaker Mini",
				Brand:           "Soundly",
				Category:        "Electronics",
				Price:           1899,
				Rating:          4.1,
				Features:        "waterproof;12h battery;usb-c",
				SimilarityScore: 0.84,
				OverallScore:    0.79,
			},
		},
		Explanation: "Simulated transport: recommendations generated from a canned profile.",
	}
}
