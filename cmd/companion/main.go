package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/aikumi/companion/internal/profile"
	"github.com/aikumi/companion/plugin/ai/aitime"
	"github.com/aikumi/companion/plugin/ai/contextbuilder"
	"github.com/aikumi/companion/plugin/ai/intent"
	"github.com/aikumi/companion/plugin/ai/memory"
	"github.com/aikumi/companion/plugin/ai/reminder"
	serverai "github.com/aikumi/companion/server/ai"
	"github.com/aikumi/companion/server/chat"
	"github.com/aikumi/companion/server/dispatch"
	"github.com/aikumi/companion/server/render"
	"github.com/aikumi/companion/server/router"
	"github.com/aikumi/companion/store"
	"github.com/aikumi/companion/store/db"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Conversational companion with temporal reminders and memory",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `server mode, "dev" or "prod"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address")
	rootCmd.PersistentFlags().Int("port", 8231, "binding port")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database connection string")

	viper.SetEnvPrefix("companion")
	viper.AutomaticEnv()
	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

// logNotifier is the default delivery seam. The chat transport that
// forwards notices to users plugs in here; until one is attached,
// dispatched notices land in the process log.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, userID, message string) error {
	slog.Info("notify", "user_id", userID, "message", message)
	return nil
}

func run() error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	setupLogger(p)
	slog.Info("starting companion",
		"version", p.Version, "mode", p.Mode, "driver", p.Driver, "port", p.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := db.NewDBDriver(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s := store.New(driver, p)
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	provider, err := serverai.NewProvider(serverai.ConfigFromProfile(p))
	if err != nil {
		return fmt.Errorf("failed to build ai provider: %w", err)
	}
	if !p.IsAIEnabled() {
		slog.Warn("no generative backend configured, replies will fall back")
	}

	notifier := logNotifier{}
	reminders := reminder.NewService(s, aitime.NewResolver(), p.DefaultTimezone,
		func(userID, content string) {
			if err := notifier.Notify(context.Background(), userID, render.ReminderFired(content)); err != nil {
				slog.Error("volatile delivery failed", "user_id", userID, "error", err)
			}
		})
	defer reminders.Close()

	facts := memory.NewService(s, provider, p.AIEmbeddingModel)
	orchestrator := chat.NewOrchestrator(
		s, reminders, facts,
		contextbuilder.NewAssembler(s, facts, 0),
		intent.NewClassifier(provider),
		provider,
		chat.NewHistoryStore(),
	)

	watchers := dispatch.NewWatchers(s, notifier, p.DefaultTimezone)
	watchers.Start(ctx)

	gateway := router.NewGateway(p, s, orchestrator, reminders)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", p.Addr, p.Port)
		if err := gateway.Start(addr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := gateway.Shutdown(shutdownCtx); err != nil {
			slog.Error("gateway shutdown failed", "error", err)
		}
		watchers.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("companion stopped")
	return nil
}
