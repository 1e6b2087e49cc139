package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests that hit no registered route, so scanners
// cannot grow the path label set.
const unmatchedRoute = "unmatched"

// payloadSizeBuckets cover request bodies from a single key lookup up to large
// envelope batches.
var payloadSizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	payload  metric.Int64Histogram
}

func newHTTPMetrics(meterProvider metric.MeterProvider, namespace string) (*httpMetrics, error) {
	meter := meterProvider.Meter(namespace)

	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	payload, err := meter.Int64Histogram(
		fmt.Sprintf("%s_http_request_size_bytes", namespace),
		metric.WithDescription("Size of envelope and key request bodies"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(payloadSizeBuckets...),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{requests: requests, duration: duration, payload: payload}, nil
}

// HTTPMetricsMiddleware records request count and latency by method, route
// pattern and status code, plus the body size of requests that carry one.
// Routes such as /v1/keys/:version are labelled by pattern, never by the
// concrete version. When the instruments cannot be created the middleware
// only passes requests through.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	m, err := newHTTPMetrics(meterProvider, namespace)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		route := routeLabel(c.FullPath())
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", route),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)

		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)

		if c.Request.ContentLength > 0 {
			m.payload.Record(ctx, c.Request.ContentLength, metric.WithAttributes(
				attribute.String("method", c.Request.Method),
				attribute.String("path", route),
			))
		}
	}
}

func routeLabel(fullPath string) string {
	if fullPath == "" {
		return unmatchedRoute
	}
	return fullPath
}
