package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterDBTracing attaches the otelgorm plugin so each statement becomes a span.
// Bind variables are left out of spans since they carry identifiers and code hashes.
func RegisterDBTracing(db *gorm.DB, tp *TracerProvider, dbSystem string, logger *zap.Logger) error {
	if tp == nil || !tp.IsEnabled() {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithTracerProvider(tp.provider),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("failed to register otelgorm: %w", err)
	}

	logger.Info("Database tracing enabled", zap.String("db_system", dbSystem))
	return nil
}
