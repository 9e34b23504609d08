package checks

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/database"
	"github.com/insyd/insyd/internal/monitoring"
)

// Database returns a critical probe that pings the database handle.
func Database(db *gorm.DB) monitoring.Check {
	return monitoring.Check{
		Name:     "database",
		Critical: true,
		Probe: func(ctx context.Context) error {
			if db == nil {
				return errors.New("database not configured")
			}
			return database.Ping(ctx, db)
		},
	}
}
