// Package datadog submits pipeline metrics to Datadog.
//
// Observations are buffered in memory and shipped on Flush. A background
// loop flushes on a ticker so long runs produce a time series instead of a
// single spike; Close stops the loop and flushes one final time. Short-lived
// runs get everything from that final flush.
package datadog

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"datafuse/internal/metrics"
)

// Options configures the backend.
type Options struct {
	// JobName becomes tag "job:<name>" on every series. Defaults to
	// "datafuse".
	JobName string

	// Tags are extra Datadog tags, e.g. []string{"env:prod"}.
	Tags []string

	// FlushEvery is the background flush interval. Defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets these; tests use
	// them to avoid real clocks, tickers, and network submission.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the slice of the Datadog SDK the backend needs. The
// SDK only exposes the concrete *datadogV2.MetricsApi, which cannot be
// stubbed; depending on this interface keeps tests off the network.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend.
type Backend struct {
	api  metricsSubmitter
	ctx  context.Context
	tags []string

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu       sync.Mutex
	counters map[seriesKey]float64
	gauges   map[seriesKey]float64
}

// seriesKey identifies one buffered series by name and joined tags.
type seriesKey struct {
	name string
	tags string
}

// New constructs the backend and starts its flush loop. Credentials come
// from the standard DD_API_KEY / DD_APP_KEY environment variables; network
// errors surface from Flush, not from construction.
func New(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "datafuse"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 1+len(opts.Tags))
	baseTags = append(baseTags, "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	tickerFn := opts.newTicker
	if tickerFn == nil {
		tickerFn = time.NewTicker
	}
	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		tags:       baseTags,
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		now:        nowFn,
		newTicker:  tickerFn,
		counters:   make(map[seriesKey]float64),
		gauges:     make(map[seriesKey]float64),
	}
	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and submits whatever remains. Close once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

func (b *Backend) IncCounter(name string, delta float64, tags []string) {
	if delta <= 0 {
		return
	}
	k := seriesKey{name: name, tags: joinTags(tags)}
	b.mu.Lock()
	b.counters[k] += delta
	b.mu.Unlock()
}

func (b *Backend) SetGauge(name string, value float64, tags []string) {
	k := seriesKey{name: name, tags: joinTags(tags)}
	b.mu.Lock()
	b.gauges[k] = value
	b.mu.Unlock()
}

// Flush submits buffered series and resets the buffers. Buffers reset even
// when submission fails so a flaky intake cannot grow memory without bound.
func (b *Backend) Flush() error {
	b.mu.Lock()
	counters, gauges := b.counters, b.gauges
	b.counters = make(map[seriesKey]float64)
	b.gauges = make(map[seriesKey]float64)
	b.mu.Unlock()

	if len(counters) == 0 && len(gauges) == 0 {
		return nil
	}

	nowUnix := b.now().Unix()
	series := make([]datadogV2.MetricSeries, 0, len(counters)+len(gauges))
	for k, v := range counters {
		series = append(series, b.series(k, v, datadogV2.METRICINTAKETYPE_COUNT, nowUnix))
	}
	for k, v := range gauges {
		series = append(series, b.series(k, v, datadogV2.METRICINTAKETYPE_GAUGE, nowUnix))
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Metric < series[j].Metric })

	payload := datadogV2.MetricPayload{Series: series}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

func (b *Backend) series(k seriesKey, value float64, typ datadogV2.MetricIntakeType, nowUnix int64) datadogV2.MetricSeries {
	tags := make([]string, 0, len(b.tags)+4)
	tags = append(tags, b.tags...)
	if k.tags != "" {
		tags = append(tags, strings.Split(k.tags, ",")...)
	}
	return datadogV2.MetricSeries{
		Metric: "datafuse." + strings.ReplaceAll(k.name, "_", "."),
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// joinTags canonicalizes a tag list so {a,b} and {b,a} land in one series.
func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	cp := append([]string(nil), tags...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

// ParseTagsCSV parses comma-separated tags like "env:prod,team:data".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
