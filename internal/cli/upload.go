package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopstack/shopsync/internal/api"
	"github.com/shopstack/shopsync/internal/events"
	"github.com/shopstack/shopsync/internal/progressui"
	"github.com/shopstack/shopsync/internal/staging"
	"github.com/shopstack/shopsync/internal/upload"
)

// newUploadCmd creates the 'upload' command group.
func newUploadCmd() *cobra.Command {
	uploadCmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload CSV files to the dashboard backend",
		Long:  `Stage local CSV files and upload them to the product catalog or user-behavior endpoint with live progress.`,
	}

	uploadCmd.AddCommand(newUploadProductsCmd())
	uploadCmd.AddCommand(newUploadBehaviorsCmd())

	return uploadCmd
}

// newUploadProductsCmd creates the 'upload products' command.
func newUploadProductsCmd() *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "products <file.csv> [more.csv...]",
		Short: "Upload product catalog CSVs",
		Long: `Upload one or more product catalog CSV files.

The endpoint replaces the catalog wholesale with the uploaded rows.

Examples:
  # Upload a catalog file
  shopsync upload products catalog.csv

  # Upload without local header validation
  shopsync upload products catalog.csv --no-preflight`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(args, api.TargetProducts, skipPreflight, staging.PreflightCatalog)
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "no-preflight", false, "Skip local CSV header validation")

	return cmd
}

// newUploadBehaviorsCmd creates the 'upload behaviors' command.
func newUploadBehaviorsCmd() *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "behaviors <file.csv> [more.csv...]",
		Short: "Upload user-behavior CSVs",
		Long: `Upload one or more user-behavior CSV files.

The endpoint replaces the behavior log wholesale with the uploaded rows.

Examples:
  # Upload a behavior log
  shopsync upload behaviors events.csv

  # Simulate the upload end to end
  shopsync upload behaviors events.csv --mock`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(args, api.TargetBehavior, skipPreflight, staging.PreflightBehavior)
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "no-preflight", false, "Skip local CSV header validation")

	return cmd
}

// runUpload stages the given paths, confirms oversized files, and drives one
// upload session to its terminal outcome.
func runUpload(paths []string, target api.UploadTarget, skipPreflight bool, preflight func(string) error) error {
	ctx := GetContext()

	client, cfg, err := newAPIClient()
	if err != nil {
		return err
	}

	candidates := make([]staging.Candidate, 0, len(paths))
	for _, p := range paths {
		c, err := staging.FromPath(p)
		if err != nil {
			return fmt.Errorf("cannot stage %s: %w", p, err)
		}
		candidates = append(candidates, c)
	}

	if !skipPreflight {
		for _, p := range paths {
			if err := preflight(p); err != nil {
				return fmt.Errorf("preflight failed for %s: %w", p, err)
			}
		}
	}

	stager := staging.NewStager(cfg.ConfirmThresholdBytes)
	res := stager.Stage(candidates)
	if res.RejectedReason != "" {
		return fmt.Errorf("%s", res.RejectedReason)
	}

	if n := stager.PendingCount(); n > 0 {
		ok, err := promptConfirmOversized(res.Pending, cfg.ConfirmThresholdBytes)
		if err != nil {
			return err
		}
		if !ok {
			stager.CancelPending()
			fmt.Println("Upload cancelled.")
			return nil
		}
		stager.ConfirmPending()
	}

	files := stager.Staged()
	if len(files) == 0 {
		return fmt.Errorf("nothing to upload")
	}

	mode := upload.ModeReal
	if cfg.MockUpload {
		mode = upload.ModeMock
	}

	bus := events.NewBus(0)
	defer bus.Close()

	engine := upload.NewEngine(client, bus)
	progressCh := bus.Subscribe(events.EventUploadProgress)

	ui := progressui.NewUploadUI()
	ui.AddFiles(files)
	GetLogger().SetOutput(ui.Writer())

	handle, err := engine.Begin(ctx, files, target, mode)
	if err != nil {
		return err
	}

	var outcome upload.Outcome
	done := false
	for !done {
		select {
		case ev := <-progressCh:
			if pe, ok := ev.(*events.UploadProgressEvent); ok {
				ui.Update(pe.PerFile)
			}
		case outcome = <-handle.Outcome():
			done = true
		}
	}

	ui.Finish(outcome.Kind == upload.OutcomeSuccess)
	stager.Clear()

	return printOutcome(outcome)
}

// printOutcome renders the terminal result of an upload session.
func printOutcome(o upload.Outcome) error {
	switch o.Kind {
	case upload.OutcomeSuccess:
		fmt.Println("Upload complete.")
		if len(o.Envelope.Recommendations) > 0 {
			printRecommendations(o.Envelope)
		}
		return nil
	case upload.OutcomeAborted:
		fmt.Println("Upload aborted.")
		return nil
	case upload.OutcomeServerError:
		return fmt.Errorf("upload rejected by server: %s", o.Message)
	default:
		return fmt.Errorf("upload failed: %s", o.Message)
	}
}
