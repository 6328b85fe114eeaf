package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopstack/shopsync/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage shopsync configuration",
		Long:  `View and modify the configuration file (` + "~/.config/shopsync/config" + `).`,
	}

	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("api.base_url                  %s\n", cfg.APIBaseURL)
			fmt.Printf("api.tunnel_header             %s\n", cfg.TunnelHeader)
			fmt.Printf("api.tunnel_header_value       %s\n", cfg.TunnelHeaderValue)
			fmt.Printf("api.proxy_mode                %s\n", cfg.ProxyMode)
			fmt.Printf("upload.mock                   %t\n", cfg.MockUpload)
			fmt.Printf("upload.confirm_threshold_bytes %d\n", cfg.ConfirmThresholdBytes)
			return nil
		},
	}
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	var (
		baseURL   string
		threshold int64
		mock      bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update and persist configuration values",
		Long: `Update configuration values and write them to the config file.

Examples:
  shopsync config set --url https://example.ngrok-free.app
  shopsync config set --threshold 10485760
  shopsync config set --mock=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			if baseURL != "" {
				cfg.APIBaseURL = baseURL
			}
			if threshold > 0 {
				cfg.ConfirmThresholdBytes = threshold
			}
			if cmd.Flags().Changed("mock") {
				cfg.MockUpload = mock
			}

			if err := config.Save(cfg, path); err != nil {
				return err
			}

			fmt.Println("Configuration saved.")
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "API base URL")
	cmd.Flags().Int64Var(&threshold, "threshold", 0, "Upload confirmation threshold in bytes")
	cmd.Flags().BoolVar(&mock, "mock", false, "Default to simulated uploads")

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultPath()
				if err != nil {
					return err
				}
			}
			fmt.Println(path)
			return nil
		},
	}
}
