package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartReservationCleaner purges expired unconfirmed reservations with interval
func StartReservationCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
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
				res, err := db.ExecContext(ctx, `
                    DELETE FROM usernames
                     WHERE confirmed = false
                       AND reserved_until < $1
                `, time.Now())
				if err != nil {
					log.Error("failed to clean expired reservations", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned expired reservations", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
