package internaltelemetry

import (
	"go.opentelemetry.io/otel/metric"
)

// PagerMetrics holds all the metric instruments for the file pager.
type PagerMetrics struct {
	PagesReadCounter      metric.Int64Counter
	PagesWrittenCounter   metric.Int64Counter
	BytesReadCounter      metric.Int64Counter
	BytesWrittenCounter   metric.Int64Counter
	PagesAllocatedCounter metric.Int64Counter
}

// NewPagerMetrics creates and registers all the metrics for the file pager.
func NewPagerMetrics(meter metric.Meter) (*PagerMetrics, error) {
	pagesRead, err := meter.Int64Counter(
		"lumadb.pager.pages_read_total",
		metric.WithDescription("Total number of pages read from the database file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	pagesWritten, err := meter.Int64Counter(
		"lumadb.pager.pages_written_total",
		metric.WithDescription("Total number of pages written to the database file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	bytesRead, err := meter.Int64Counter(
		"lumadb.pager.bytes_read_total",
		metric.WithDescription("Total bytes read from the database file."),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	bytesWritten, err := meter.Int64Counter(
		"lumadb.pager.bytes_written_total",
		metric.WithDescription("Total bytes written to the database file."),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	pagesAllocated, err := meter.Int64Counter(
		"lumadb.pager.pages_allocated_total",
		metric.WithDescription("Total number of new pages allocated in the database file."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &PagerMetrics{
		PagesReadCounter:      pagesRead,
		PagesWrittenCounter:   pagesWritten,
		BytesReadCounter:      bytesRead,
		BytesWrittenCounter:   bytesWritten,
		PagesAllocatedCounter: pagesAllocated,
	}, nil
}
