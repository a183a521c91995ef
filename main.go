package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iziiz/EGL314-photobooth/boothconfig"
	"github.com/iziiz/EGL314-photobooth/commands"
	"github.com/spf13/cobra"
)

const photobooth = "photobooth"

func main() {
	var configPath string
	var config boothconfig.BoothConfig

	rootCmd := cobra.Command{
		Use:   photobooth,
		Short: "Interactive photo booth with background replacement and Drive upload",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			config, err = boothconfig.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := config.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")

	loginCmd := cobra.Command{
		Use:   "login",
		Short: "Authorize with Google Drive and persist the token",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			configDir := filepath.Dir(config.ConfigPath())
			if _, err := commands.GetAuthenticatedDriveHTTPClient(ctx, config, configDir); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			fmt.Println("Google Drive authorization complete.")
		},
	}
	rootCmd.AddCommand(&loginCmd)

	runCmd := cobra.Command{
		Use:   "run",
		Short: "Run the kiosk session loop",
		Long: `Run the photo booth: countdown, capture, background removal, compositing,
background upload of the raw frame, and a QR code for the final image's
share link. Works without a Drive connection; uploads are then skipped.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			session := commands.NewDriveSession(config)
			session.Connect(ctx)

			uploader, err := commands.NewBoothUploader(config, session)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			uploader.Start()
			defer uploader.Stop()

			framesDir, err := cmd.Flags().GetString("frames-dir")
			if err != nil {
				fmt.Fprintln(os.Stderr, "error: invalid frames-dir flag:", err)
				os.Exit(1)
			}

			var frames commands.FrameSource
			if framesDir != "" {
				frames, err = commands.NewFileSource(framesDir)
				if err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
					os.Exit(1)
				}
			} else {
				w, h := config.Camera.GetFrameSize()
				frames = commands.NewFFmpegSource(config.Camera.GetDevice(), w, h)
			}
			defer frames.Close()

			deps := commands.BoothDeps{
				Frames:   frames,
				Remover:  commands.NewHTTPRemover(config.RembgURL),
				Uploader: uploader,
				Trigger:  os.Stdin,
				Out:      os.Stdout,
			}
			if err := commands.RunBooth(ctx, config, deps); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
		},
	}
	runCmd.Flags().String("frames-dir", "", "Serve frames from a directory of images instead of the webcam")
	rootCmd.AddCommand(&runCmd)

	uploadCmd := cobra.Command{
		Use:   "upload",
		Short: "Upload leftover images from the output directory to Google Drive",
		Long: `Upload pending pipeline images from the output directory to Google Drive.
This is the recovery path for photos whose background upload was dropped.
Successfully uploaded images are moved into the uploaded/ subdirectory.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			session := commands.NewDriveSession(config)
			session.Connect(ctx)
			if !session.IsConnected() {
				fmt.Fprintln(os.Stderr, "error: could not connect to Google Drive")
				os.Exit(1)
			}

			uploader, err := commands.NewBoothUploader(config, session)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			if err := commands.UploadPending(ctx, config, uploader); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
		},
	}
	rootCmd.AddCommand(&uploadCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
