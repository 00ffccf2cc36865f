// Package analytics tracks publish events and produces periodic aggregate
// reports. The pipeline records into it fire-and-forget; nothing here feeds
// back into order processing.
package analytics

import (
	"fmt"
	"sync"
	"time"

	"taap-agent-system/models"
)

// Metrics are the engagement counters tracked per published order.
type Metrics struct {
	Impressions      int     `json:"impressions"`
	EngagementRate   float64 `json:"engagement_rate"`
	ClickThroughRate float64 `json:"click_through_rate"`
}

// PublishStats is the analytics record for one published order.
type PublishStats struct {
	OrderID     string             `json:"order_id"`
	PostIDs     []string           `json:"post_ids"`
	ContentID   string             `json:"content_id"`
	ServiceCode models.ServiceCode `json:"service_code"`
	RecordedAt  time.Time          `json:"recorded_at"`
	Metrics     Metrics            `json:"metrics"`
	Updates     []MetricUpdate     `json:"updates"`
}

// MetricUpdate is one appended metrics observation.
type MetricUpdate struct {
	Timestamp time.Time `json:"timestamp"`
	Metrics   Metrics   `json:"metrics"`
}

// Aggregate summarizes metrics across all tracked orders.
type Aggregate struct {
	TotalImpressions    int     `json:"total_impressions"`
	AvgEngagementRate   float64 `json:"avg_engagement_rate"`
	AvgClickThroughRate float64 `json:"avg_click_through_rate"`
}

// Report is a periodic aggregate summary.
type Report struct {
	Timestamp   time.Time                  `json:"timestamp"`
	Metrics     Aggregate                  `json:"metrics"`
	TotalOrders int                        `json:"total_orders"`
	ByService   map[models.ServiceCode]int `json:"by_service,omitempty"`
	Trends      *TrendSummary              `json:"trends,omitempty"`
}

// TrendSummary is the weekly trend section.
type TrendSummary struct {
	TopService    models.ServiceCode `json:"top_service"`
	TopEngagement float64            `json:"top_engagement"`
}

// Tracker collects publish stats and builds reports.
type Tracker struct {
	mu      sync.Mutex
	metrics map[string]*PublishStats
	hourly  map[string]Report
	daily   map[string]Report
	weekly  map[string]Report
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		metrics: make(map[string]*PublishStats),
		hourly:  make(map[string]Report),
		daily:   make(map[string]Report),
		weekly:  make(map[string]Report),
	}
}

// RecordPublish registers a completed publish for later reporting.
func (t *Tracker) RecordPublish(order *models.Order, postIDs []string, contentID string) error {
	if order == nil || order.ID == "" || len(postIDs) == 0 {
		return fmt.Errorf("invalid order or post ids for analytics")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics[order.ID] = &PublishStats{
		OrderID:     order.ID,
		PostIDs:     append([]string(nil), postIDs...),
		ContentID:   contentID,
		ServiceCode: order.ServiceCode,
		RecordedAt:  time.Now(),
	}
	return nil
}

// UpdateMetrics merges a metrics observation into an order's record and
// appends it to the update log.
func (t *Tracker) UpdateMetrics(orderID string, m Metrics) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats, ok := t.metrics[orderID]
	if !ok {
		return fmt.Errorf("analytics not found for order: %s", orderID)
	}
	stats.Metrics = m
	stats.Updates = append(stats.Updates, MetricUpdate{Timestamp: time.Now(), Metrics: m})
	return nil
}

// HourlyReport builds and stores the aggregate report for the current hour.
func (t *Tracker) HourlyReport() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	report := Report{
		Timestamp:   now,
		Metrics:     t.aggregate(),
		TotalOrders: len(t.metrics),
	}
	t.hourly[now.Format("2006-01-02-15")] = report
	return report
}

// DailyReport builds and stores the aggregate report for the current day,
// including the per-service breakdown.
func (t *Tracker) DailyReport() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	report := Report{
		Timestamp:   now,
		Metrics:     t.aggregate(),
		TotalOrders: len(t.metrics),
		ByService:   t.serviceBreakdown(),
	}
	t.daily[now.Format("2006-01-02")] = report
	return report
}

// WeeklyReport builds and stores the aggregate report for the current ISO
// week, including breakdown and trends.
func (t *Tracker) WeeklyReport() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	year, week := now.ISOWeek()
	report := Report{
		Timestamp:   now,
		Metrics:     t.aggregate(),
		TotalOrders: len(t.metrics),
		ByService:   t.serviceBreakdown(),
		Trends:      t.trends(),
	}
	t.weekly[fmt.Sprintf("%d-W%02d", year, week)] = report
	return report
}

func (t *Tracker) aggregate() Aggregate {
	var agg Aggregate
	count := 0
	for _, stats := range t.metrics {
		agg.TotalImpressions += stats.Metrics.Impressions
		agg.AvgEngagementRate += stats.Metrics.EngagementRate
		agg.AvgClickThroughRate += stats.Metrics.ClickThroughRate
		count++
	}
	if count > 0 {
		agg.AvgEngagementRate /= float64(count)
		agg.AvgClickThroughRate /= float64(count)
	}
	return agg
}

func (t *Tracker) serviceBreakdown() map[models.ServiceCode]int {
	breakdown := make(map[models.ServiceCode]int)
	for _, stats := range t.metrics {
		breakdown[stats.ServiceCode]++
	}
	return breakdown
}

func (t *Tracker) trends() *TrendSummary {
	totals := make(map[models.ServiceCode]float64)
	counts := make(map[models.ServiceCode]int)
	for _, stats := range t.metrics {
		totals[stats.ServiceCode] += stats.Metrics.EngagementRate
		counts[stats.ServiceCode]++
	}

	summary := &TrendSummary{}
	for code, total := range totals {
		avg := total / float64(counts[code])
		if summary.TopService == "" || avg > summary.TopEngagement {
			summary.TopService = code
			summary.TopEngagement = avg
		}
	}
	return summary
}
