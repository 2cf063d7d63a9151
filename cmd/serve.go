package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anoixa/shock-panel/api/core"
	"github.com/anoixa/shock-panel/config"
	"github.com/anoixa/shock-panel/internal/app"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	if cfg.DBType == "sqlite" {
		if err := os.MkdirAll("./data", os.ModePerm); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	container, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	log.Printf("Database initialized, database type: %s", container.Database.Name())
	log.Printf("Cache provider: %s", container.Cache.Name())

	// 定期清理过期会话
	sessionCleanupStop := make(chan struct{})
	go startSessionCleanup(container, sessionCleanupStop)

	// 启动gin
	server, cleanup := core.StartServer(container)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cleanup != nil {
		cleanup()
		log.Println("Cleanup tasks finished.")
	}

	close(sessionCleanupStop)

	container.Close()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited successfully")
}

// startSessionCleanup 定期删除过期的刷新令牌会话
func startSessionCleanup(container *app.Container, stop <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if count, err := container.SessionsRepo.DeleteExpiredSessions(); err != nil {
				log.Printf("Failed to clean up expired sessions: %v", err)
			} else if count > 0 {
				log.Printf("Cleaned up %d expired sessions", count)
			}
		case <-stop:
			return
		}
	}
}
