package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// EventType tags generic http webhook payloads.
const EventType = "rcs_quality_alert"

// HTTPPayload is the body posted to "http" webhooks.
type HTTPPayload struct {
	Event      string     `json:"event"`
	SeriesID   string     `json:"series_id"`
	Issues     []string   `json:"issues"`
	FinalRange [2]float64 `json:"final_range"`
	DataPoints int        `json:"data_points"`
	Alert      *Alert     `json:"alert"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	Facts []teamsFact `json:"facts"`
}

type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []teamsSection `json:"sections"`
}

// facts lists the report details shown in chat notifications, in display
// order.
func facts(a *Alert) []teamsFact {
	issues := "none"
	if len(a.Issues) > 0 {
		issues = strings.Join(a.Issues, ", ")
	}
	return []teamsFact{
		{Name: "Series", Value: a.SeriesID},
		{Name: "Issues", Value: issues},
		{Name: "Final range", Value: fmt.Sprintf("[%.2f, %.2f]", a.FinalRange[0], a.FinalRange[1])},
		{Name: "Data points", Value: fmt.Sprintf("%d", a.DataPoints)},
		{Name: "Value", Value: fmt.Sprintf("%.2f", a.Value)},
	}
}

func slackBody(a *Alert) slackMessage {
	ff := facts(a)
	fields := make([]slackField, len(ff))
	for i, f := range ff {
		fields[i] = slackField{Title: f.Name, Value: f.Value, Short: true}
	}
	return slackMessage{
		Text: fmt.Sprintf("*%s* %s (%s)", severityLabel(a.Severity), a.Message, a.State),
		Attachments: []slackAttachment{{
			Color:  "#" + severityColor(a.Severity),
			Fields: fields,
		}},
	}
}

func teamsBody(a *Alert) teamsCard {
	return teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: severityColor(a.Severity),
		Summary:    a.RuleName,
		Title:      fmt.Sprintf("RCS quality alert on %s: %s (%s)", a.SeriesID, a.RuleName, a.State),
		Text:       a.Message,
		Sections:   []teamsSection{{Facts: facts(a)}},
	}
}

func httpBody(a *Alert) HTTPPayload {
	return HTTPPayload{
		Event:      EventType,
		SeriesID:   a.SeriesID,
		Issues:     a.Issues,
		FinalRange: a.FinalRange,
		DataPoints: a.DataPoints,
		Alert:      a,
	}
}

// deliver posts a to every webhook with a resolvable URL. Failures are
// logged and do not stop the remaining targets.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var body interface{}
		switch wh.Type {
		case "slack":
			body = slackBody(a)
		case "teams":
			body = teamsBody(a)
		case "http":
			body = httpBody(a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		raw, err := json.Marshal(body)
		if err == nil {
			err = e.post(url, raw)
		}
		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"series", a.SeriesID,
				"err", err,
			)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type,
			"rule", a.RuleName,
			"series", a.SeriesID,
			"state", a.State,
		)
	}
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("alerts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("alerts: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alerts: webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
