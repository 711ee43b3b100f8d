// internal/alerting/channels.go - Channel payload formatters and URL auto-detection
package alerting

import (
    "fmt"
    "strings"
    "time"

    "beacon/internal/database"
)

// Alert severities derived from a status transition.
const (
    SeverityCritical = "critical"
    SeverityRecovery = "recovery"
    SeverityInfo     = "info"
)

// Alert is the channel-independent description of one status transition.
type Alert struct {
    App          string
    EndpointName string
    URL          string
    OldStatus    string
    NewStatus    string
    Severity     string
    Timestamp    time.Time
    DashboardURL string
}

// SeverityFor classifies a transition: critical when the endpoint went
// offline, recovery when it came back from offline, info otherwise.
func SeverityFor(oldStatus, newStatus string) string {
    switch {
    case newStatus == database.StatusOffline:
        return SeverityCritical
    case oldStatus == database.StatusOffline && newStatus == database.StatusOnline:
        return SeverityRecovery
    default:
        return SeverityInfo
    }
}

// AlertData is the generic payload body shared by every channel schema.
type AlertData struct {
    App       string `json:"app"`
    URL       string `json:"url"`
    OldStatus string `json:"old_status"`
    NewStatus string `json:"new_status"`
    Timestamp string `json:"timestamp"`
    Severity  string `json:"severity"`
}

func (a Alert) data() AlertData {
    return AlertData{
        App:       a.App,
        URL:       a.URL,
        OldStatus: a.OldStatus,
        NewStatus: a.NewStatus,
        Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
        Severity:  a.Severity,
    }
}

func (a Alert) title() string {
    switch a.Severity {
    case SeverityCritical:
        return fmt.Sprintf("%s is offline", a.EndpointName)
    case SeverityRecovery:
        return fmt.Sprintf("%s has recovered", a.EndpointName)
    default:
        return fmt.Sprintf("%s changed status", a.EndpointName)
    }
}

func (a Alert) summary() string {
    return fmt.Sprintf("%s (%s) went from %s to %s", a.EndpointName, a.URL, a.OldStatus, a.NewStatus)
}

// Formatter maps an Alert into one channel's JSON payload shape.
type Formatter func(Alert) interface{}

// formatters is the channel table; adding a channel means adding one
// constant and one entry here.
var formatters = map[string]Formatter{
    database.ChannelWebhook: formatGeneric,
    database.ChannelSlack:   formatSlack,
    database.ChannelDiscord: formatDiscord,
    database.ChannelMSTeams: formatMSTeams,
}

// FormatterFor resolves the formatter for an alert config. A webhook
// destination pointing at a known chat host auto-selects that host's
// formatter; unmatched URLs fall back to the generic envelope.
func FormatterFor(channel, destination string) (Formatter, error) {
    if channel == database.ChannelWebhook {
        if detected := DetectChannel(destination); detected != "" {
            channel = detected
        }
    }
    f, ok := formatters[channel]
    if !ok {
        return nil, fmt.Errorf("unknown channel type: %s", channel)
    }
    return f, nil
}

// DetectChannel inspects a webhook URL for a known chat service host
// pattern. Empty string means no match.
func DetectChannel(rawURL string) string {
    u := strings.ToLower(rawURL)
    switch {
    case strings.Contains(u, "hooks.slack.com"):
        return database.ChannelSlack
    case strings.Contains(u, "discord.com/api/webhooks"), strings.Contains(u, "discordapp.com/api/webhooks"):
        return database.ChannelDiscord
    case strings.Contains(u, "webhook.office.com"), strings.Contains(u, "outlook.office.com"):
        return database.ChannelMSTeams
    }
    return ""
}

// formatGeneric is the fallback JSON envelope for plain webhooks.
func formatGeneric(a Alert) interface{} {
    return map[string]interface{}{
        "type":    "status_alert",
        "data":    a.data(),
        "version": "1",
    }
}

func formatSlack(a Alert) interface{} {
    color := map[string]string{
        SeverityCritical: "danger",
        SeverityRecovery: "good",
        SeverityInfo:     "#439fe0",
    }[a.Severity]

    attachment := map[string]interface{}{
        "color":    color,
        "fallback": a.summary(),
        "title":    a.title(),
        "text":     a.summary(),
        "ts":       a.Timestamp.Unix(),
        "fields": []map[string]interface{}{
            {"title": "Previous", "value": a.OldStatus, "short": true},
            {"title": "Current", "value": a.NewStatus, "short": true},
        },
    }
    if a.DashboardURL != "" {
        attachment["title_link"] = a.DashboardURL
    }

    return map[string]interface{}{
        "attachments": []interface{}{attachment},
    }
}

func formatDiscord(a Alert) interface{} {
    color := map[string]int{
        SeverityCritical: 0xd9534f,
        SeverityRecovery: 0x5cb85c,
        SeverityInfo:     0x439fe0,
    }[a.Severity]

    embed := map[string]interface{}{
        "title":       a.title(),
        "description": a.summary(),
        "color":       color,
        "timestamp":   a.Timestamp.UTC().Format(time.RFC3339),
        "fields": []map[string]interface{}{
            {"name": "Previous", "value": a.OldStatus, "inline": true},
            {"name": "Current", "value": a.NewStatus, "inline": true},
        },
    }
    if a.DashboardURL != "" {
        embed["url"] = a.DashboardURL
    }

    return map[string]interface{}{
        "embeds": []interface{}{embed},
    }
}

func formatMSTeams(a Alert) interface{} {
    theme := map[string]string{
        SeverityCritical: "d9534f",
        SeverityRecovery: "5cb85c",
        SeverityInfo:     "439fe0",
    }[a.Severity]

    card := map[string]interface{}{
        "@type":      "MessageCard",
        "@context":   "http://schema.org/extensions",
        "themeColor": theme,
        "summary":    a.summary(),
        "title":      a.title(),
        "sections": []map[string]interface{}{
            {
                "activityTitle": a.summary(),
                "facts": []map[string]string{
                    {"name": "URL", "value": a.URL},
                    {"name": "Previous", "value": a.OldStatus},
                    {"name": "Current", "value": a.NewStatus},
                    {"name": "Time", "value": a.Timestamp.UTC().Format(time.RFC3339)},
                },
            },
        },
    }
    if a.DashboardURL != "" {
        card["potentialAction"] = []map[string]interface{}{
            {
                "@type": "OpenUri",
                "name":  "Open dashboard",
                "targets": []map[string]string{
                    {"os": "default", "uri": a.DashboardURL},
                },
            },
        }
    }
    return card
}
