package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopstack/shopsync/internal/envelope"
	"github.com/shopstack/shopsync/internal/models"
)

// newRecommendCmd creates the 'recommend' command group.
func newRecommendCmd() *cobra.Command {
	recommendCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Fetch product recommendations",
		Long:  `Commands for generating and retrieving per-user product recommendations.`,
	}

	recommendCmd.AddCommand(newRecommendGenerateCmd())
	recommendCmd.AddCommand(newRecommendStoredCmd())

	return recommendCmd
}

// newRecommendGenerateCmd creates the 'recommend generate' command.
func newRecommendGenerateCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "generate <user-id>",
		Short: "Generate fresh recommendations for a user",
		Long: `Ask the backend to compute and persist recommendations for a user.

Example:
  shopsync recommend generate U1001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			raw, err := client.GenerateRecommendations(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to generate recommendations: %w", err)
			}

			return renderRecommendations(raw, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "json", "J", false, "Output as JSON")

	return cmd
}

// newRecommendStoredCmd creates the 'recommend stored' command.
func newRecommendStoredCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "stored [user-id]",
		Short: "Show stored recommendations",
		Long: `Show recommendations previously persisted by the backend.

With a user id, shows that user's stored set. Without one, shows every
stored set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			var raw []byte
			if len(args) == 1 {
				raw, err = client.StoredRecommendations(ctx, args[0])
			} else {
				raw, err = client.AllStoredRecommendations(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to get stored recommendations: %w", err)
			}

			return renderRecommendations(raw, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "json", "J", false, "Output as JSON")

	return cmd
}

// renderRecommendations normalizes and prints a recommendation envelope.
func renderRecommendations(raw []byte, outputJSON bool) error {
	set, err := envelope.Recommendations(raw, "")
	if err != nil {
		return fmt.Errorf("failed to decode recommendations: %w", err)
	}

	if outputJSON {
		data, err := json.MarshalIndent(set, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printRecommendations(set)
	return nil
}

// printRecommendations renders a set in rank order.
func printRecommendations(set models.RecommendationSet) {
	if len(set.Recommendations) == 0 {
		fmt.Println("No recommendations found")
		if set.Explanation != "" {
			fmt.Println(set.Explanation)
		}
		return
	}

	fmt.Printf("Found %d recommendation(s):\n\n", len(set.Recommendations))
	for i, r := range set.Recommendations {
		fmt.Printf("  %2d. %-12s  %-30s  %8.2f  score %.3f\n",
			i+1, r.ProductID, r.Name, r.Price, r.OverallScore)
	}
	if set.Explanation != "" {
		fmt.Printf("\n%s\n", set.Explanation)
	}
}
