package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopstack/shopsync/internal/api"
	"github.com/shopstack/shopsync/internal/events"
	"github.com/shopstack/shopsync/internal/logging"
	"github.com/shopstack/shopsync/internal/notify"
	"github.com/shopstack/shopsync/internal/progressui"
	"github.com/shopstack/shopsync/internal/staging"
	"github.com/shopstack/shopsync/internal/upload"
	"github.com/shopstack/shopsync/internal/watcher"
)

// newWatchCmd creates the 'watch' command.
func newWatchCmd() *cobra.Command {
	var (
		targetName string
		notifyDesk bool
	)

	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a drop folder and upload CSVs as they arrive",
		Long: `Watch a directory and upload each CSV file that lands in it.

Files over the confirmation threshold are skipped; watch mode never
prompts. Press Ctrl+C to stop.

Examples:
  # Auto-upload catalog files from a drop folder
  shopsync watch ./drop --target products

  # Auto-upload behavior logs
  shopsync watch ./drop --target behaviors`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := uploadTarget(targetName)
			if err != nil {
				return err
			}
			return runWatch(args[0], target, notifyDesk)
		},
	}

	cmd.Flags().StringVarP(&targetName, "target", "t", "products", "Upload target: products or behaviors")
	cmd.Flags().BoolVar(&notifyDesk, "notify", false, "Send desktop notifications for upload outcomes")

	return cmd
}

// uploadTarget resolves the --target flag.
func uploadTarget(name string) (api.UploadTarget, error) {
	switch name {
	case "products":
		return api.TargetProducts, nil
	case "behaviors":
		return api.TargetBehavior, nil
	default:
		return api.UploadTarget{}, fmt.Errorf("invalid target %q: must be products or behaviors", name)
	}
}

// runWatch stages and uploads settled CSVs until the context is cancelled.
func runWatch(dir string, target api.UploadTarget, notifyDesk bool) error {
	ctx := GetContext()
	log := GetLogger()
	notifier := notify.NewNotifier(log, notifyDesk)

	client, cfg, err := newAPIClient()
	if err != nil {
		return err
	}

	mode := upload.ModeReal
	if cfg.MockUpload {
		mode = upload.ModeMock
	}

	stager := staging.NewStager(cfg.ConfirmThresholdBytes)

	w, err := watcher.New(stager, log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	fileEvents, err := w.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	bus := events.NewBus(0)
	defer bus.Close()

	engine := upload.NewEngine(client, bus)

	bar := progressui.NewWatchBar(dir)
	defer bar.Finish()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			bar.Tick()

		case ev, ok := <-fileEvents:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				log.Errorf("Skipping %s: %v", ev.Path, ev.Err)
				continue
			}
			if ev.Result.RejectedReason != "" {
				log.Warnf("Skipping %s: %s", ev.Path, ev.Result.RejectedReason)
				continue
			}
			if len(ev.Result.Pending) > 0 {
				stager.CancelPending()
				log.Warnf("Skipping %s: exceeds the %.1f MiB threshold",
					ev.Path, float64(cfg.ConfirmThresholdBytes)/(1024*1024))
				continue
			}
			if len(ev.Result.Accepted) == 0 {
				continue
			}

			name := ev.Result.Accepted[0].Name
			bar.Describe(fmt.Sprintf("Uploading %s", name))
			if err := watchUpload(ctx, engine, stager, target, mode, log); err != nil {
				log.Errorf("Upload failed: %v", err)
				notifier.UploadFailed(name, err)
			} else {
				notifier.UploadComplete(name)
			}
			stager.Clear()
			bar.Describe(fmt.Sprintf("Watching %s", dir))
		}
	}
}

// watchUpload drives one unattended upload session to completion.
func watchUpload(ctx context.Context, engine *upload.Engine, stager *staging.Stager, target api.UploadTarget, mode upload.Mode, log *logging.Logger) error {
	files := stager.Staged()

	handle, err := engine.Begin(ctx, files, target, mode)
	if err != nil {
		return err
	}

	outcome := <-handle.Outcome()
	switch outcome.Kind {
	case upload.OutcomeSuccess:
		for _, f := range files {
			log.Infof("Uploaded %s", f.Name)
		}
		return nil
	case upload.OutcomeAborted:
		return nil
	default:
		return fmt.Errorf("%s", outcome.Message)
	}
}
