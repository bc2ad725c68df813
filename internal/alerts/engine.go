package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/rcsclean/internal/config"
	"github.com/obsidianstack/rcsclean/pkg/types"
)

const (
	defaultCooldown = config.DefaultAlertCooldown
	maxHistoryLen   = 200
	recentWindow    = time.Hour

	// DefaultSeriesID keys reports that arrive without a series ID.
	DefaultSeriesID = "default"
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert is one alert event produced by the engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	SeriesID   string     `json:"series_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`

	// Report details at the last transition.
	Issues     []string   `json:"issues"`
	FinalRange [2]float64 `json:"final_range"`
	DataPoints int        `json:"data_points"`
}

// describe copies the report details shown in notifications into a.
func (a *Alert) describe(r *types.ProcessingReport) {
	a.Issues = make([]string, len(r.OriginalIssues))
	for i, is := range r.OriginalIssues {
		a.Issues[i] = string(is.Kind)
	}
	a.FinalRange = [2]float64{r.FinalRange.Min, r.FinalRange.Max}
	a.DataPoints = r.DataPoints
}

// Engine evaluates rules against processing reports. It is safe for
// concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	client   *http.Client
	now      func() time.Time

	mu       sync.Mutex
	active   map[string]*Alert // key: "rule:series"
	lastFire map[string]time.Time
	history  []*Alert
	wg       sync.WaitGroup
}

// New creates an Engine. Rules whose condition does not parse are logged
// and skipped; an Engine without rules makes Evaluate a no-op.
func New(cfg config.AlertsConfig) *Engine {
	rules := make([]config.AlertRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if !validCondition(r.Condition) {
			slog.Warn("alerts: ignoring rule with invalid condition",
				"rule", r.Name, "condition", r.Condition)
			continue
		}
		rules = append(rules, r)
	}
	return &Engine{
		rules:    rules,
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
	}
}

// Rules returns the number of rules in effect.
func (e *Engine) Rules() int { return len(e.rules) }

// Evaluate tests every rule against report. Newly firing alerts are stored
// and delivered asynchronously; firing alerts whose condition no longer holds
// are resolved.
func (e *Engine) Evaluate(seriesID string, report *types.ProcessingReport) {
	if len(e.rules) == 0 || report == nil {
		return
	}
	if seriesID == "" {
		seriesID = DefaultSeriesID
	}

	now := e.now()
	for _, rule := range e.rules {
		key := rule.Name + ":" + seriesID
		fires, value := evalCondition(rule.Condition, report)

		var out *Alert
		e.mu.Lock()
		if fires {
			out = e.fireLocked(rule, key, seriesID, value, report, now)
		} else {
			out = e.resolveLocked(key, report, now)
		}
		e.mu.Unlock()

		if out == nil {
			continue
		}
		if out.State == StateFiring {
			slog.Warn("alerts: fired",
				"rule", rule.Name,
				"series", seriesID,
				"value", value,
				"severity", out.Severity,
			)
		} else {
			slog.Info("alerts: resolved", "rule", rule.Name, "series", seriesID)
		}
		e.wg.Add(1)
		go func(a *Alert) {
			defer e.wg.Done()
			e.deliver(a)
		}(out)
	}
}

func (e *Engine) fireLocked(rule config.AlertRule, key, seriesID string, value float64, report *types.ProcessingReport, now time.Time) *Alert {
	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
		return nil
	}
	sev := rule.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:       uuid.NewString(),
		RuleName: rule.Name,
		SeriesID: seriesID,
		Severity: sev,
		Value:    value,
		Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
			sev, rule.Name, seriesID, rule.Condition, value),
		FiredAt: now,
		State:   StateFiring,
	}
	a.describe(report)
	e.active[key] = a
	e.lastFire[key] = now
	cp := *a
	return &cp
}

func (e *Engine) resolveLocked(key string, report *types.ProcessingReport, now time.Time) *Alert {
	a, ok := e.active[key]
	if !ok {
		return nil
	}
	resolved := now
	a.describe(report)
	a.State = StateResolved
	a.ResolvedAt = &resolved
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	cp := *a
	return &cp
}

// Active returns copies of the firing alerts plus those resolved within the
// past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))
	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Wait blocks until all pending webhook deliveries have finished.
func (e *Engine) Wait() { e.wg.Wait() }
