// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/copybase/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	parseTotal      *expvar.Int
	parseErrorTotal *expvar.Int
	parseLatencyMS  *expvar.Int
	decodeRecords   *expvar.Int
	decodeErrors    *expvar.Int
	decodeLatencyMS *expvar.Int
	rulesExtracted  *expvar.Int
	fieldsParsed    *expvar.Int
	requestsByRoute *expvar.Map
)

func ensureInit() {
	initOnce.Do(func() {
		parseTotal = expvar.NewInt("copybase_parse_total")
		parseErrorTotal = expvar.NewInt("copybase_parse_errors_total")
		parseLatencyMS = expvar.NewInt("copybase_parse_latency_ms")

		decodeRecords = expvar.NewInt("copybase_decode_records_total")
		decodeErrors = expvar.NewInt("copybase_decode_errors_total")
		decodeLatencyMS = expvar.NewInt("copybase_decode_latency_ms")

		rulesExtracted = expvar.NewInt("copybase_rules_extracted_total")
		fieldsParsed = expvar.NewInt("copybase_fields_parsed_total")

		requestsByRoute = expvar.NewMap("copybase_requests_total")
	})
}

// StartSpan opens a debug-traced span; the returned func closes it and logs
// the duration together with any extra attributes.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordParse counts a schema build and its extracted metadata.
func RecordParse(fields, rules int, duration time.Duration, failed bool) {
	ensureInit()
	parseTotal.Add(1)
	if failed {
		parseErrorTotal.Add(1)
	}
	if fields > 0 {
		fieldsParsed.Add(int64(fields))
	}
	if rules > 0 {
		rulesExtracted.Add(int64(rules))
	}
	if duration > 0 {
		parseLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordDecode counts decoded records and per-record failures.
func RecordDecode(records, errors int, duration time.Duration) {
	ensureInit()
	if records > 0 {
		decodeRecords.Add(int64(records))
	}
	if errors > 0 {
		decodeErrors.Add(int64(errors))
	}
	if duration > 0 {
		decodeLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordRequest counts one handled HTTP request per route.
func RecordRequest(route string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(route))
	if key == "" {
		key = "unknown"
	}
	requestsByRoute.Add(key, 1)
}

// Snapshot returns the current counter values for the metrics endpoint.
func Snapshot() map[string]interface{} {
	ensureInit()
	out := make(map[string]interface{})
	for _, name := range []string{
		"copybase_parse_total",
		"copybase_parse_errors_total",
		"copybase_parse_latency_ms",
		"copybase_decode_records_total",
		"copybase_decode_errors_total",
		"copybase_decode_latency_ms",
		"copybase_rules_extracted_total",
		"copybase_fields_parsed_total",
		"copybase_requests_total",
	} {
		if v := expvar.Get(name); v != nil {
			out[name] = v.String()
		}
	}
	return out
}

// SpanDuration reports the elapsed time of the span carried by ctx, if any.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
