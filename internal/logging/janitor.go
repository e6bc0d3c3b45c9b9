package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store"
	"gorm.io/gorm"
)

const logRetention = 30 * 24 * time.Hour

// StartJanitor runs a daily goroutine that deletes system_logs older than 30
// days and purges expired sessions. It returns when done is closed.
func StartJanitor(db *gorm.DB, sessions store.SessionStore, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				RunJanitor(context.Background(), db, sessions, time.Now())
			case <-done:
				return
			}
		}
	}()
}

// RunJanitor performs one cleanup pass.
func RunJanitor(ctx context.Context, db *gorm.DB, sessions store.SessionStore, now time.Time) {
	if db != nil {
		cutoff := now.Add(-logRetention)
		result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
		if result.Error != nil {
			slog.Error("log cleanup failed", "error", result.Error)
		} else if result.RowsAffected > 0 {
			slog.Info("log cleanup completed", "deleted", result.RowsAffected)
		}
	}

	n, err := sessions.DeleteExpired(ctx)
	if err != nil {
		slog.Error("session cleanup failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("expired sessions purged", "deleted", n)
	}
}
