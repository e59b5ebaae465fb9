package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/hipcheck/internal/app"
	"github.com/ayusman/hipcheck/internal/capture"
	"github.com/ayusman/hipcheck/internal/config"
	"github.com/ayusman/hipcheck/internal/detector"
	"github.com/ayusman/hipcheck/internal/motion"
	"github.com/ayusman/hipcheck/internal/server"
	"github.com/ayusman/hipcheck/internal/store"
	"github.com/ayusman/hipcheck/internal/tray"
)

func main() {
	fmt.Println("hipcheck - hip movement monitor")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	joint, err := detector.ParseJoint(cfg.ReferenceJoint)
	if err != nil {
		log.Fatalf("Invalid reference joint: %v", err)
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		log.Fatalf("Failed to prepare data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "hipcheck.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	tolerance, err := initialTolerance(st, cfg.Tolerance())
	if err != nil {
		log.Fatalf("Failed to load exercise: %v", err)
	}

	monitor, err := app.New(app.Config{
		Camera: capture.Config{
			DeviceID: cfg.CameraID,
			Width:    capture.DefaultWidth,
			Height:   capture.DefaultHeight,
			FPS:      cfg.FPS,
		},
		ReferenceJoint: joint,
		Tolerance:      tolerance,
	})
	if err != nil {
		log.Fatalf("Failed to create monitor: %v", err)
	}

	if err := monitor.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	defer monitor.Stop()

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(dataDir)
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	httpServer := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Monitor:   monitor,
	}).Handler(cfg.Addr)

	serveErr := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tray {
		runTray(ctx, stop, monitor, dashboardURL(cfg.Addr))
	} else {
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				log.Printf("Server failed: %v", err)
			}
		}
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down server: %v", err)
	}
}

// initialTolerance seeds the default preset on first run and returns the
// bands of the stored active exercise, falling back to the first preset.
func initialTolerance(st *store.Store, fallback motion.Tolerance) (motion.Tolerance, error) {
	first, err := st.Exercises().SeedDefault(fallback)
	if err != nil {
		return motion.Tolerance{}, err
	}

	active, err := st.ActiveExercise()
	switch {
	case err == nil:
		log.Printf("restored exercise %q", active.Name)
		return active.Tolerance(), nil
	case errors.Is(err, store.ErrNotFound):
		if err := st.Settings().Set(store.SettingActiveExercise, first.ID); err != nil {
			return motion.Tolerance{}, err
		}
		log.Printf("using exercise %q", first.Name)
		return first.Tolerance(), nil
	default:
		return motion.Tolerance{}, err
	}
}

// runTray blocks on the tray loop until Quit is chosen or ctx is cancelled.
func runTray(ctx context.Context, stop context.CancelFunc, monitor *app.App, url string) {
	t := tray.New()
	t.OnRestart(monitor.Reset)
	t.OnDashboard(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("error opening dashboard: %v", err)
		}
	})
	t.OnQuit(stop)

	observations, cancel := monitor.Subscribe(16)
	defer cancel()
	go t.Follow(observations)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the dashboard directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
