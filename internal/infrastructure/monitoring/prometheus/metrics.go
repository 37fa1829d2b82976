package prometheus

import (
	"strconv"
	"time"
)

// ExpansionMetrics holds the metrics of stereo expansion runs.
type ExpansionMetrics struct {
	ReactionsExpandedTotal CounterVec
	ReactionVariants       HistogramVec
	ReactionExpandDuration HistogramVec
	ReactionsSkippedTotal  CounterVec
	VariantRetriesTotal    CounterVec
	VariantsDroppedTotal   CounterVec
	CacheLookupsTotal      CounterVec
	ComponentGroups        HistogramVec
	SinkFailuresTotal      CounterVec
	RunsTotal              CounterVec
	LastRunDuration        GaugeVec
}

// Default Buckets
var (
	DefaultOracleDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultCountBuckets          = []float64{0, 1, 2, 4, 8, 16, 32, 64, 128}
)

// NewExpansionMetrics registers all metrics and returns ExpansionMetrics.
func NewExpansionMetrics(collector MetricsCollector) *ExpansionMetrics {
	m := &ExpansionMetrics{}

	m.ReactionsExpandedTotal = collector.RegisterCounter("reactions_expanded_total", "Reactions expanded by the oracle", "class")
	m.ReactionVariants = collector.RegisterHistogram("reaction_variants", "Stereo variants per expanded reaction", DefaultCountBuckets, "class")
	m.ReactionExpandDuration = collector.RegisterHistogram("reaction_expand_duration_seconds", "Time to expand one reaction", DefaultOracleDurationBuckets, "class")
	m.ReactionsSkippedTotal = collector.RegisterCounter("reactions_skipped_total", "Reactions skipped during expansion", "reason")
	m.VariantRetriesTotal = collector.RegisterCounter("variant_retries_total", "Variant conversions retried")
	m.VariantsDroppedTotal = collector.RegisterCounter("variants_dropped_total", "Variants dropped after exhausting attempts")
	m.CacheLookupsTotal = collector.RegisterCounter("cache_lookups_total", "Expansion cache lookups", "result")
	m.ComponentGroups = collector.RegisterHistogram("component_groups", "Stereo-consistent groups per component", DefaultCountBuckets)
	m.SinkFailuresTotal = collector.RegisterCounter("sink_failures_total", "Failed result deliveries", "sink")
	m.RunsTotal = collector.RegisterCounter("runs_total", "Finished expansion runs")
	m.LastRunDuration = collector.RegisterGauge("last_run_duration_seconds", "Duration of the last expansion run")

	return m
}

func (m *ExpansionMetrics) ReactionExpanded(class string, variants int, elapsed time.Duration) {
	label := classLabel(class)
	m.ReactionsExpandedTotal.WithLabelValues(label).Inc()
	m.ReactionVariants.WithLabelValues(label).Observe(float64(variants))
	m.ReactionExpandDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (m *ExpansionMetrics) ReactionSkipped(reason string) {
	m.ReactionsSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *ExpansionMetrics) VariantRetried() {
	m.VariantRetriesTotal.WithLabelValues().Inc()
}

func (m *ExpansionMetrics) VariantDropped() {
	m.VariantsDroppedTotal.WithLabelValues().Inc()
}

func (m *ExpansionMetrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *ExpansionMetrics) ComponentSplit(groups int) {
	m.ComponentGroups.WithLabelValues().Observe(float64(groups))
}

func (m *ExpansionMetrics) SinkFailed(sink string) {
	m.SinkFailuresTotal.WithLabelValues(sink).Inc()
}

func (m *ExpansionMetrics) RunFinished(elapsed time.Duration) {
	m.RunsTotal.WithLabelValues().Inc()
	m.LastRunDuration.WithLabelValues().Set(elapsed.Seconds())
}

// classLabel bounds the length of oracle class labels.
func classLabel(class string) string {
	if class == "" {
		return "unclassified"
	}
	if len(class) > 64 {
		return class[:64] + "~" + strconv.Itoa(len(class))
	}
	return class
}
