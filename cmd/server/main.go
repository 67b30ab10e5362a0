package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"resq/internal/config"
	"resq/internal/services"
	"resq/internal/utils"
	"resq/pkg/websocket"
	"resq/routes"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          utils.AppName,
		Short:        "Emergency reporting client",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serveCommand(),
		statusCommand(),
		notificationsCommand(),
		sosCommand(),
		cancelCommand(),
		offlineCommand(),
	)
	return rootCmd
}

// withApp loads configuration, builds the client and tears it down after run.
func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to start")
		return err
	}
	defer a.close()

	// The hub drains broadcasts even when no UI is attached.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	return run(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) {
	fmt.Fprintln(cmd.OutOrStdout(), utils.PrettyJSON(v))
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local bridge for the UI shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.config
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := a.cases.Initialize(ctx); err != nil {
		return err
	}

	caseHandler, sosHandler, locationHandler := a.handlers()
	router := routes.NewRouter(routes.Handlers{
		Case:     caseHandler,
		SOS:      sosHandler,
		Location: locationHandler,
		WebSocket: websocket.NewHandler(a.hub, websocket.Options{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			PingInterval:    cfg.WebSocket.PingInterval,
			PongTimeout:     cfg.WebSocket.PongTimeout,
			AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		}),
	}, routes.Options{
		BridgeToken:    cfg.App.BridgeToken,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
		WebSocketPath:  cfg.WebSocket.Path,
		Version:        cfg.App.Version,
	}, a.log)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", server.Addr).Info("Starting bridge")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("bridge stopped: %w", err)
		}
	case <-ctx.Done():
	}

	a.log.Info("Shutting down bridge")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("Bridge shutdown incomplete")
	}
	return nil
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active case and recent notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				a.cases.Refresh(ctx)
				printJSON(cmd, a.cases.State())
				return nil
			})
		},
	}
}

func notificationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "List case status updates, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				a.cases.CheckNotifications(ctx)
				printJSON(cmd, a.cases.NotificationFeed())
				return nil
			})
		},
	}
}

func sosCommand() *cobra.Command {
	var countdown time.Duration

	cmd := &cobra.Command{
		Use:   "sos",
		Short: "Send an SOS after the countdown",
		Long: `Send an SOS for the signed-in reporter.

The SOS is sent when the countdown expires. Press Ctrl+C during the
countdown to abort without contacting the backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if countdown > 0 {
					a.config.Case.SOSCountdown = countdown
				}
				a.cases.Refresh(ctx)

				result := a.sos.Press(ctx)
				switch result.Outcome {
				case services.PressShowExisting:
					fmt.Fprintln(cmd.OutOrStdout(), utils.MsgSOSExisting)
					printJSON(cmd, result.Existing)
					return nil
				case services.PressStarted:
				default:
					return fmt.Errorf("sos not started: %s", result.Outcome)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Sending SOS in %s\n", a.config.Case.SOSCountdown)
				done := make(chan struct{})
				go func() {
					a.sos.Wait()
					close(done)
				}()

				select {
				case <-done:
				case <-ctx.Done():
					a.sos.CancelCountdown()
					<-done
				}

				state := a.sos.State()
				printJSON(cmd, state)
				if state.LastError != "" {
					return errors.New(state.LastError)
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&countdown, "countdown", 0, "Override the SOS countdown")
	return cmd
}

func cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [report-id]",
		Short: "Cancel the active case",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				a.cases.Refresh(ctx)

				var reportID string
				if len(args) == 1 {
					reportID = args[0]
				}
				if !a.cases.CancelCurrentCase(ctx, reportID, nil) {
					return errors.New(utils.ErrCancelFailed)
				}
				fmt.Fprintln(cmd.OutOrStdout(), utils.MsgCaseCancelled)
				return nil
			})
		},
	}
}

func offlineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "offline-sos",
		Short: "Text the hotline numbers when the backend is unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.fallback == nil {
					return errors.New("offline SOS is not configured")
				}
				result, err := a.fallback.SendOfflineSOS(ctx)
				if result != nil {
					printJSON(cmd, result)
				}
				return err
			})
		},
	}
}
