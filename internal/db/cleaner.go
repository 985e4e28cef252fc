package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartUnverifiedCleaner periodically removes accounts that were never
// verified within retention of registering.
func StartUnverifiedCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM users
                     WHERE is_verified = FALSE
                       AND created_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to purge unverified accounts", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("purged unverified accounts", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
