// Package loki pushes check-in event lines to Grafana Loki over its HTTP
// push API. Used by the event worker; the server never talks to Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	pushPath = "/loki/api/v1/push"
	jobLabel = "acp"
)

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is one label set with its log entries, each [timestamp_ns, line].
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// Loki label names must match [a-zA-Z_:][a-zA-Z0-9_:]*; values get the same
// treatment to keep streams queryable.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// eventFields covers the attendance event fields used for labels and the
// entry timestamp. Everything else stays in the raw line.
type eventFields struct {
	SessionID string `json:"session_id"`
	EventType string `json:"event_type"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

// PushEventJSON pushes one event (the raw Kafka message value) to Loki,
// labeling the stream with session_id, event_type, and source. A line that
// is not valid event JSON is still pushed, with the current time and only
// the job label.
func PushEventJSON(ctx context.Context, baseURL string, rawJSON []byte) error {
	ts := time.Now().UTC()
	labels := map[string]string{}

	var fields eventFields
	if err := json.Unmarshal(rawJSON, &fields); err == nil {
		for k, v := range map[string]string{
			"session_id": fields.SessionID,
			"event_type": fields.EventType,
			"source":     fields.Source,
		} {
			if v != "" {
				labels[k] = v
			}
		}
		if t, ok := parseEventTime(fields.CreatedAt); ok {
			ts = t
		}
	}
	return PushEvent(ctx, baseURL, ts, string(rawJSON), labels)
}

func parseEventTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PushEvent sends a single log line to Loki at baseURL (e.g.
// http://localhost:3100). Returns an error when the request fails or Loki
// answers non-2xx.
func PushEvent(ctx context.Context, baseURL string, timestamp time.Time, line string, labels map[string]string) error {
	if baseURL == "" {
		return fmt.Errorf("loki: base URL is empty")
	}

	stream := make(map[string]string, len(labels)+1)
	stream["job"] = jobLabel
	for k, v := range labels {
		if s := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); s != "" {
			stream[k] = s
		}
	}

	payload, err := json.Marshal(PushRequest{
		Streams: []Stream{{
			Stream: stream,
			Values: [][]string{{strconv.FormatInt(timestamp.UnixNano(), 10), line}},
		}},
	})
	if err != nil {
		return err
	}

	url := strings.TrimSuffix(baseURL, "/") + pushPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
