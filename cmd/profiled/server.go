package main

import (
	"context"
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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/profiled/internal/api"
	"github.com/kalambet/profiled/internal/avatar"
	"github.com/kalambet/profiled/internal/config"
	"github.com/kalambet/profiled/internal/profile"
	"github.com/kalambet/profiled/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the profiled server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running profiled server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show profiled status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "profiled.pid")
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

func setupLogging(cfg config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
}

// editorSession is one mounted editor over the configured store scope.
type editorSession struct {
	store    *storage.Store
	editor   *profile.Aggregator
	writer   *profile.AsyncWriter
	previews *avatar.MemoryRegistry
}

func openEditor(cfg config.Config) (*editorSession, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	scope := store.Scope(cfg.Storage.Scope)
	writer := profile.NewAsyncWriter(scope)
	previews := avatar.NewMemoryRegistry()
	ed := profile.NewAggregator(scope,
		profile.WithSliceWriter(writer),
		profile.WithRegistry(previews),
	)
	return &editorSession{store: store, editor: ed, writer: writer, previews: previews}, nil
}

// close unmounts the editor, writes any queued slices, and closes the store.
func (s *editorSession) close() {
	s.editor.Close()
	s.writer.Flush()
	if err := s.store.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

func runServer(parent context.Context) error {
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("profiled is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("profiled is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStep("Opening store in %s", cfg.Storage.DataDir)
	sess, err := openEditor(cfg)
	if err != nil {
		return err
	}
	defer sess.close()
	slog.Info("editor mounted", "scope", cfg.Storage.Scope, "data_dir", cfg.Storage.DataDir)

	handler := api.NewEditorHandler(api.EditorDeps{
		Editor:   sess.editor,
		Previews: sess.previews,
		Token:    apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	srv.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		return sess.writer.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("profiled listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("profiled is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop profiled (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to profiled (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		if token, err := config.GetAPIToken(config.NewKeychain()); err == nil {
			c := &apiClient{baseURL: serverURL, token: token, httpClient: client}
			var view api.ProfileResponse
			if r, err := c.get(ctx, "/profile"); err == nil && decodeJSON(r, &view) == nil {
				printStatus("Profile", "%s", view.State)
				printStatus("Interests", "%d", len(view.Profile.Interests))
				printStatus("Links", "%d", len(view.Profile.Links))
				if !view.Profile.SavedAt.IsZero() {
					printStatus("Last saved", "%s", view.Profile.SavedAt.Local().Format(time.DateTime))
				}
			}
		}
	}

	printStatus("Scope", "%s", cfg.Storage.Scope)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
