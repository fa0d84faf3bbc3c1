// Package usage tracks LLM token consumption and cost. State lives in a
// single JSON document, read once at startup and rewritten wholesale after
// every update: call volume is low, so correctness beats throughput.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/klarifai/queen-rag/internal/metrics"
)

const dateFormat = "2006-01-02"

// DayUsage is the aggregate for one calendar day.
type DayUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Requests         int     `json:"requests"`
	CostEUR          float64 `json:"cost_eur"`
}

// DailyStat is one entry of the trailing-7-days report.
type DailyStat struct {
	Day      int     `json:"day"`
	Date     string  `json:"date"`
	Tokens   int     `json:"tokens"`
	Requests int     `json:"requests"`
	CostEUR  float64 `json:"cost_eur"`
}

// Stats is a snapshot of the running totals plus the trailing seven
// calendar days, oldest first.
type Stats struct {
	TotalPromptTokens     int         `json:"total_prompt_tokens"`
	TotalCompletionTokens int         `json:"total_completion_tokens"`
	TotalTokens           int         `json:"total_tokens"`
	TotalRequests         int         `json:"total_requests"`
	TotalCostEUR          float64     `json:"total_cost_eur"`
	DailyUsage            []DailyStat `json:"daily_usage"`
}

// persistedState is the on-disk shape of the tracker.
type persistedState struct {
	DailyUsage            map[string]*DayUsage `json:"daily_usage"`
	TotalPromptTokens     int                  `json:"total_prompt_tokens"`
	TotalCompletionTokens int                  `json:"total_completion_tokens"`
	TotalTokens           int                  `json:"total_tokens"`
	TotalRequests         int                  `json:"total_requests"`
	TotalCostEUR          float64              `json:"total_cost_eur"`
	LastUpdated           string               `json:"last_updated"`
}

// Tracker accumulates token usage per day and in aggregate. All methods
// are safe for concurrent use; persistence happens inside the lock so the
// file always reflects a consistent state.
type Tracker struct {
	mu    sync.Mutex
	path  string
	log   zerolog.Logger
	now   func() time.Time
	daily map[string]*DayUsage

	totalPromptTokens     int
	totalCompletionTokens int
	totalTokens           int
	totalRequests         int
	totalCostEUR          float64
}

// New creates a tracker persisting to path, loading any existing state.
// A load failure is logged and ignored: tracking starts fresh rather than
// blocking startup.
func New(path string, log zerolog.Logger) *Tracker {
	t := &Tracker{
		path:  path,
		log:   log.With().Str("component", "usage").Logger(),
		now:   time.Now,
		daily: make(map[string]*DayUsage),
	}
	t.load()
	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.log.Warn().Err(err).Msg("failed to load token usage data")
		}
		return
	}
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		t.log.Warn().Err(err).Msg("failed to parse token usage data")
		return
	}
	if state.DailyUsage != nil {
		t.daily = state.DailyUsage
	}
	t.totalPromptTokens = state.TotalPromptTokens
	t.totalCompletionTokens = state.TotalCompletionTokens
	t.totalTokens = state.TotalTokens
	t.totalRequests = state.TotalRequests
	t.totalCostEUR = state.TotalCostEUR
	t.log.Info().
		Int("total_tokens", t.totalTokens).
		Int("total_requests", t.totalRequests).
		Str("total_cost", fmt.Sprintf("€%.2f", t.totalCostEUR)).
		Msg("loaded token usage")
}

// save writes the full state to disk. Callers hold the lock. Errors are
// logged and swallowed: usage tracking must never abort a user request.
func (t *Tracker) save() {
	state := persistedState{
		DailyUsage:            t.daily,
		TotalPromptTokens:     t.totalPromptTokens,
		TotalCompletionTokens: t.totalCompletionTokens,
		TotalTokens:           t.totalTokens,
		TotalRequests:         t.totalRequests,
		TotalCostEUR:          t.totalCostEUR,
		LastUpdated:           t.now().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		t.log.Error().Err(err).Msg("failed to marshal token usage data")
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		t.log.Error().Err(err).Msg("failed to create usage storage directory")
		return
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		t.log.Error().Err(err).Msg("failed to save token usage data")
	}
}

// Record adds one request's token usage to today's bucket and the running
// totals, then persists.
func (t *Tracker) Record(promptTokens, completionTokens int, model string) {
	totalTokens := promptTokens + completionTokens
	costEUR := Cost(promptTokens, completionTokens, model)

	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.now().Format(dateFormat)
	day, ok := t.daily[today]
	if !ok {
		day = &DayUsage{}
		t.daily[today] = day
	}
	day.PromptTokens += promptTokens
	day.CompletionTokens += completionTokens
	day.TotalTokens += totalTokens
	day.Requests++
	day.CostEUR += costEUR

	t.totalPromptTokens += promptTokens
	t.totalCompletionTokens += completionTokens
	t.totalTokens += totalTokens
	t.totalRequests++
	t.totalCostEUR += costEUR

	t.save()

	metrics.TokensConsumed.WithLabelValues("prompt").Add(float64(promptTokens))
	metrics.TokensConsumed.WithLabelValues("completion").Add(float64(completionTokens))

	t.log.Info().
		Int("tokens", totalTokens).
		Str("model", model).
		Str("cost", fmt.Sprintf("€%.4f", costEUR)).
		Int("total_tokens", t.totalTokens).
		Msg("token usage recorded")
}

// Stats returns the running totals and the trailing seven calendar days
// ordered oldest to newest, with inactive days zero-filled.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	daily := make([]DailyStat, 0, 7)
	for i := 6; i >= 0; i-- {
		date := t.now().AddDate(0, 0, -i).Format(dateFormat)
		stat := DailyStat{Day: i, Date: date}
		if day, ok := t.daily[date]; ok {
			stat.Tokens = day.TotalTokens
			stat.Requests = day.Requests
			stat.CostEUR = day.CostEUR
		}
		daily = append(daily, stat)
	}

	return Stats{
		TotalPromptTokens:     t.totalPromptTokens,
		TotalCompletionTokens: t.totalCompletionTokens,
		TotalTokens:           t.totalTokens,
		TotalRequests:         t.totalRequests,
		TotalCostEUR:          t.totalCostEUR,
		DailyUsage:            daily,
	}
}

// Reset clears all usage state, for tests or a new billing period.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.daily = make(map[string]*DayUsage)
	t.totalPromptTokens = 0
	t.totalCompletionTokens = 0
	t.totalTokens = 0
	t.totalRequests = 0
	t.totalCostEUR = 0
	t.save()
	t.log.Info().Msg("token usage data reset")
}
