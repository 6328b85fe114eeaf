package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopstack/shopsync/internal/envelope"
	"github.com/shopstack/shopsync/internal/models"
)

// newBehaviorsCmd creates the 'behaviors' command group.
func newBehaviorsCmd() *cobra.Command {
	behaviorsCmd := &cobra.Command{
		Use:   "behaviors",
		Short: "Manage the user-behavior log",
		Long: `Commands for listing and mutating user-behavior records.

Update and delete address records by the server-assigned id shown in
'behaviors list'. Records without one cannot be mutated.`,
	}

	behaviorsCmd.AddCommand(newBehaviorsListCmd())
	behaviorsCmd.AddCommand(newBehaviorsAddCmd())
	behaviorsCmd.AddCommand(newBehaviorsUpdateCmd())
	behaviorsCmd.AddCommand(newBehaviorsDeleteCmd())

	return behaviorsCmd
}

// newBehaviorsListCmd creates the 'behaviors list' command.
func newBehaviorsListCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List behavior records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			raw, err := client.GetBehaviors(ctx)
			if err != nil {
				return fmt.Errorf("failed to get behaviors: %w", err)
			}

			recs, err := envelope.Behaviors(raw)
			if err != nil {
				return fmt.Errorf("failed to decode behaviors: %w", err)
			}

			if outputJSON {
				data, err := json.MarshalIndent(recs, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			if len(recs) == 0 {
				fmt.Println("No behavior records found")
				return nil
			}

			fmt.Printf("Found %d record(s):\n\n", len(recs))
			for _, r := range recs {
				id := r.StableID
				if id == "" {
					id = "(no id)"
				}
				fmt.Printf("  %-26s  %-10s  %-12s  %-12s  %s\n",
					id, r.UserID, r.ProductID, r.Action, r.Timestamp)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "json", "J", false, "Output as JSON")

	return cmd
}

// behaviorFlags binds the record fields shared by add and update.
func behaviorFlags(cmd *cobra.Command, rec *models.BehaviorRecord) {
	cmd.Flags().StringVar(&rec.UserID, "user", "", "User id")
	cmd.Flags().StringVar(&rec.ProductID, "product", "", "Product id")
	cmd.Flags().StringVar(&rec.Action, "action", "", "Action: view, add_to_cart, or purchase")
	cmd.Flags().StringVar(&rec.Timestamp, "timestamp", "", "Timestamp (defaults to now)")
}

// validateBehavior fills defaults and rejects malformed records before any
// network call.
func validateBehavior(rec *models.BehaviorRecord) error {
	if rec.Action != "" && !models.ValidAction(rec.Action) {
		return fmt.Errorf("invalid action %q: must be view, add_to_cart, or purchase", rec.Action)
	}
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().Format(models.TimestampLayout)
	} else if _, err := time.Parse(models.TimestampLayout, rec.Timestamp); err != nil {
		return fmt.Errorf("invalid timestamp %q: want format %s", rec.Timestamp, models.TimestampLayout)
	}
	return nil
}

// newBehaviorsAddCmd creates the 'behaviors add' command.
func newBehaviorsAddCmd() *cobra.Command {
	var rec models.BehaviorRecord

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a behavior record",
		Long: `Create a behavior record on the backend.

Example:
  shopsync behaviors add --user U1001 --product P512 --action purchase`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			if err := validateBehavior(&rec); err != nil {
				return err
			}

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			if err := client.AddBehavior(ctx, rec); err != nil {
				return fmt.Errorf("failed to add behavior: %w", err)
			}

			fmt.Printf("Recorded %s of %s by %s\n", rec.Action, rec.ProductID, rec.UserID)
			return nil
		},
	}

	behaviorFlags(cmd, &rec)

	return cmd
}

// newBehaviorsUpdateCmd creates the 'behaviors update' command.
func newBehaviorsUpdateCmd() *cobra.Command {
	var rec models.BehaviorRecord

	cmd := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Update a behavior record by its server-assigned id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			if err := validateBehavior(&rec); err != nil {
				return err
			}

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			if err := client.UpdateBehavior(ctx, args[0], rec); err != nil {
				return fmt.Errorf("failed to update behavior: %w", err)
			}

			fmt.Printf("Updated record %s\n", args[0])
			return nil
		},
	}

	behaviorFlags(cmd, &rec)

	return cmd
}

// newBehaviorsDeleteCmd creates the 'behaviors delete' command.
func newBehaviorsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a behavior record by its server-assigned id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := newAPIClient()
			if err != nil {
				return err
			}

			if err := client.DeleteBehavior(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete behavior: %w", err)
			}

			fmt.Printf("Deleted record %s\n", args[0])
			return nil
		},
	}
}
