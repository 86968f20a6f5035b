package oteladapters_test

import (
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/askard/lendingstore-go/lendingstore/oteladapters"
)

func Test_MetricsCollector_When_RecordedFromConcurrentOperations(t *testing.T) {
	// setup
	collector := oteladapters.NewMetricsCollector(noop.NewMeterProvider().Meter("test"))
	labels := map[string]string{"operation": "borrow", "status": "ok"}

	// act - first-time observations of the same instruments from many goroutines
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			collector.RecordDuration("lendingstore_operation_duration", time.Millisecond, labels)
			collector.IncrementCounter("lendingstore_conflicts", labels)
			collector.RecordValue("lendingstore_open_loans", 1, labels)
		}()
	}

	// assert - completion without a concurrent map fault under the race detector
	wg.Wait()
}

func Test_MetricsCollector_ReusesInstrumentsPerMetricName(t *testing.T) {
	// setup
	collector := oteladapters.NewMetricsCollector(noop.NewMeterProvider().Meter("test"))

	// act - repeated observations must hit the cached instrument
	for i := 0; i < 3; i++ {
		collector.RecordDuration("lendingstore_operation_duration", time.Millisecond, nil)
		collector.IncrementCounter("lendingstore_conflicts", nil)
	}
}
