package network

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/1siamBot/rts-orders/engine/network"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
