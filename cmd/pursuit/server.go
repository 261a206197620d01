package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/pursuit/internal/api"
	"github.com/kalambet/pursuit/internal/config"
	"github.com/kalambet/pursuit/internal/dashboard"
	"github.com/kalambet/pursuit/internal/dedup"
	"github.com/kalambet/pursuit/internal/exa"
	"github.com/kalambet/pursuit/internal/ingest"
	"github.com/kalambet/pursuit/internal/storage"
	"github.com/kalambet/pursuit/internal/tracker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pursuit server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running pursuit server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pursuit server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "pursuit.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "pursuit version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	dash := dashboard.NewService(store, dashboard.DefaultGoals{
		Jobs:     cfg.Goals.WeeklyJobs,
		Dealflow: cfg.Goals.WeeklyDealflow,
	})
	trk := tracker.NewService(store)
	trk.OnChange(dash.Invalidate)
	ingester := ingest.NewIngester(store, dedup.NewDetector(cfg.Dedup.DetectorConfig()))
	ingester.OnChange(dash.Invalidate)

	if cfg.Scrape.Enabled {
		if cfg.Scrape.ExaAPIKey == "" {
			printWarning("no Exa API key; scrape tasks will fail until one is set (%s)", config.ExaKeyHint())
		}
		worker := ingest.NewWorker(store, exa.NewClientWithBaseURL(cfg.Scrape.ExaAPIKey, cfg.Scrape.ExaBaseURL), ingester, ingest.WorkerConfig{
			PollInterval: cfg.Scrape.PollDuration(),
			Concurrency:  cfg.Scrape.Concurrency,
			NumResults:   cfg.Scrape.DefaultResults,
			LookbackDays: cfg.Scrape.LookbackDays,
		})
		go worker.Run(ctx)
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Dashboard: dash, Ingester: ingester, Tracker: trk})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewHandler(api.Deps{
			Store:         store,
			Tracker:       trk,
			Dashboard:     dash,
			Ingester:      ingester,
			Token:         apiToken,
			ScrapeEnabled: cfg.Scrape.Enabled,
		}),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "pursuit listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("pursuit is not running (no PID file): %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(pidPath)
		return fmt.Errorf("could not stop pursuit (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to pursuit (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		running = resp.StatusCode == http.StatusOK
		if running {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.Scrape.Enabled {
		key := "missing"
		if cfg.Scrape.ExaAPIKey != "" {
			key = "set"
		}
		printStatus("Scraping", "enabled (Exa key %s)", key)
	} else {
		printStatus("Scraping", "disabled")
	}

	apiToken, tokenErr := config.GetAPIToken(config.NewKeychain())
	if tokenErr == nil && running {
		if logsResp, err := apiGet(client, serverURL+"/scrape/logs?limit=1", apiToken); err == nil {
			var logs []storage.ScrapeLog
			if json.NewDecoder(logsResp.Body).Decode(&logs) == nil && len(logs) > 0 {
				l := logs[0]
				printStatus("Last scrape", "%s %s (%d new, %d skipped)", l.Source, l.Status, l.New, l.Skipped)
			}
			logsResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
