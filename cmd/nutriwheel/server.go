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

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/nutriwheel/internal/advisor"
	"github.com/kalambet/nutriwheel/internal/api"
	"github.com/kalambet/nutriwheel/internal/audio"
	"github.com/kalambet/nutriwheel/internal/config"
	"github.com/kalambet/nutriwheel/internal/engine"
	"github.com/kalambet/nutriwheel/internal/journal"
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/session"
	"github.com/kalambet/nutriwheel/internal/spin"
	"github.com/kalambet/nutriwheel/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nutriwheel server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running nutriwheel server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show nutriwheel system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "nutriwheel.pid")
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

// buildAdvisor selects the chat backend. A missing key or unreachable
// local engine disables the advisor rather than failing the start.
func buildAdvisor(ctx context.Context, cfg config.Config) (*advisor.Advisor, string) {
	eng, err := engine.Detect(engine.DetectConfig{
		Provider:         cfg.Advisor.Provider,
		Model:            cfg.Advisor.Model,
		GeminiAPIKey:     cfg.Advisor.GeminiAPIKey,
		OpenRouterAPIKey: cfg.Advisor.OpenRouterAPIKey,
		OllamaBaseURL:    cfg.Ollama.BaseURL,
	})
	if err != nil {
		if errors.Is(err, engine.ErrNoAPIKey) {
			key := strings.ToLower(strings.TrimSpace(cfg.Advisor.Provider))
			if key == "" {
				key = engine.ProviderGemini
			}
			printWarning("advisor disabled: %v", err)
			if hint := config.SecretHint(key + ".api_key"); hint != "" {
				printStep("%s", hint)
			}
		} else {
			printWarning("advisor disabled: %v", err)
		}
		return nil, ""
	}
	if err := engine.EnsureReady(ctx, eng, stderr); err != nil {
		printWarning("advisor disabled: %v", err)
		return nil, ""
	}
	return advisor.New(eng, cfg.Advisor.Model, cfg.Advisor.Timeout), eng.Name()
}

func runServer(withMCP bool) error {
	fmt.Fprintf(stderr, "nutriwheel version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
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
			slog.Warn("closing storage", "error", err)
		}
	}()

	profileMgr := profile.NewManager(store)
	adv, advisorName := buildAdvisor(ctx, cfg)

	mode, err := audio.ParseMode(cfg.Audio.Mode)
	if err != nil {
		printWarning("%v; sound disabled", err)
		mode = audio.ModeOff
	}
	clicker := audio.New(mode)
	defer clicker.Close()

	// A nil *Advisor must not become a non-nil interface.
	var sessAdvisor session.Advisor
	if adv != nil {
		sessAdvisor = adv
	}
	sess := session.New(sessAdvisor, profileMgr, session.WithSpinOptions(
		spin.WithClicker(clicker),
		spin.WithSteps(cfg.Spin.Steps),
		spin.WithBaseDelay(time.Duration(cfg.Spin.BaseDelayMS)*time.Millisecond),
	))
	defer sess.Close()

	journalSvc := journal.NewService(store)
	uiStrings := menu.DefaultUIStrings()

	if cfg.Server.Token == "" {
		slog.Warn("server.token is not set; the API accepts unauthenticated requests")
	}

	handler := api.NewAppHandler(api.AppDeps{
		Session: sess,
		Profile: profileMgr,
		Journal: journalSvc,
		Strings: uiStrings,
		Token:   cfg.Server.Token,
		Version: version,
		Advisor: advisorName,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(stderr, "nutriwheel listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		fmt.Fprintln(stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if adv != nil {
		if n, err := store.RequeueRunningJobs(); err != nil {
			slog.Warn("requeueing interrupted critiques", "error", err)
		} else if n > 0 {
			slog.Info("requeued interrupted critiques", "count", n)
		}
		worker := journal.NewWorker(store, adv, profileMgr, func() []menu.MenuItem {
			return sess.Catalog().Items(menu.Drink)
		}, 0)
		g.Go(func() error {
			worker.Run(gCtx)
			return nil
		})
	} else {
		slog.Info("journal critiques paused until an advisor is configured")
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Session: sess,
			Profile: profileMgr,
			Journal: journalSvc,
			Strings: uiStrings,
			Version: version,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("nutriwheel is not running (no PID file): %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(pidPath)
		return fmt.Errorf("could not stop nutriwheel (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to nutriwheel (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.Server.Token,
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	var health api.HealthResponse
	resp, err := client.get(ctx, "/health")
	if err == nil {
		err = decodeJSON(resp, &health)
	}
	running := err == nil
	if running {
		printStatus("Server", "running on port %d (%s)", cfg.Server.Port, health.Version)
		if health.Advisor != "" {
			printStatus("Advisor", "%s", health.Advisor)
		} else {
			printStatus("Advisor", "%s", colorize(colorYellow, "disabled"))
		}
	} else {
		printStatus("Server", "stopped")
		printStatus("Advisor", "%s (configured)", cfg.Advisor.Provider)
	}

	if strings.EqualFold(cfg.Advisor.Provider, engine.ProviderOllama) {
		if engine.NewOllamaEngine(cfg.Ollama.BaseURL, "").IsRunning(ctx) {
			printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		} else {
			printStatus("Ollama", "not running")
		}
	}

	if running {
		var st journal.Stats
		if resp, err := client.get(ctx, "/stats"); err == nil && decodeJSON(resp, &st) == nil {
			printStatus("Meals saved", "%d", st.Count)
		}
	}

	printStatus("Audio", "%s", cfg.Audio.Mode)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
