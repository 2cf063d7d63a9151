package core

import (
	"context"
	"time"

	"github.com/anoixa/shock-panel/internal/app"
)

func checkDatabaseHealth(container *app.Container) string {
	if container == nil || container.Database == nil {
		return "not initialized"
	}
	if err := container.Database.Ping(); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(container *app.Container) string {
	if container == nil || container.Cache == nil {
		return "not initialized"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := container.Cache.Exists(ctx, "health:ping"); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
