package model

import "time"

// Summary is the result of a tracking summary request.
type Summary struct {
	TotalEvents  int               `yaml:"totalEvents"  json:"totalEvents"`
	EventsByType map[EventType]int `yaml:"eventsByType" json:"eventsByType"`
	SessionID    string            `yaml:"sessionId"    json:"sessionId"`
	SessionStart time.Time         `yaml:"sessionStart" json:"sessionStart"`
	CurrentTime  time.Time         `yaml:"currentTime"  json:"currentTime"`
}

// ExportBundle is the document written by an export.
type ExportBundle struct {
	SessionID   string    `yaml:"sessionId"   json:"sessionId"`
	StartTime   time.Time `yaml:"startTime"   json:"startTime"`
	EndTime     time.Time `yaml:"endTime"     json:"endTime"`
	TotalEvents int       `yaml:"totalEvents" json:"totalEvents"`
	Events      []Event   `yaml:"events"      json:"events"`
}

// CountByType tallies events per kind.
func CountByType(events []Event) map[EventType]int {
	counts := make(map[EventType]int)
	for _, e := range events {
		counts[e.Type]++
	}
	return counts
}

// SummarizeBundle builds a summary of a previously exported bundle, using
// the bundle's end time as the current time.
func SummarizeBundle(b ExportBundle) Summary {
	return Summary{
		TotalEvents:  len(b.Events),
		EventsByType: CountByType(b.Events),
		SessionID:    b.SessionID,
		SessionStart: b.StartTime,
		CurrentTime:  b.EndTime,
	}
}

// ExportFileName returns the download name hint for a session's export.
func ExportFileName(sessionID, ext string) string {
	if ext == "" {
		ext = "json"
	}
	return "tracking-data-" + sessionID + "." + ext
}
