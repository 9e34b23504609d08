package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/app"
	"github.com/insyd/insyd/internal/handlers"
	"github.com/insyd/insyd/internal/monitoring"
	"github.com/insyd/insyd/internal/monitoring/checks"
)

func registerHealthRoutes(r *gin.Engine, db *gorm.DB, health *monitoring.Health, cfg *app.Config) {
	if !cfg.Monitoring.Health.Enabled {
		return
	}

	if health == nil {
		health = monitoring.NewHealth(0)
		health.Register(checks.Database(db))
	}

	handler := handlers.Health(health)
	r.GET("/health", handler)
	r.GET("/api/health", handler)
}
