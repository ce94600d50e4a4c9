package coordinator

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/openroads/drivecore/internal/coordinator"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
