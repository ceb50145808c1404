package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing installs the otelgorm plugin so every statement becomes a
// child span of the calling request or sync run. Query parameters are never
// recorded.
func RegisterDBTracing(db *gorm.DB, dbSystem string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return err
	}
	logger.Info("Database tracing enabled", zap.String("db_system", dbSystem))
	return nil
}
