// Package fingerprint derives a stable device key from client-reported
// signals. The key is a best-effort heuristic for duplicate detection, not a
// security credential: two devices reporting an identical (or empty) signal
// set produce the same key.
package fingerprint

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Recognized signal keys. Anything else lands in the raw bucket so Derive
// stays total over arbitrary client input.
const (
	SignalUserAgent           = "user_agent"
	SignalScreenWidth         = "screen_width"
	SignalScreenHeight        = "screen_height"
	SignalPixelRatio          = "pixel_ratio"
	SignalTimezone            = "timezone"
	SignalLanguage            = "language"
	SignalPlatform            = "platform"
	SignalTouchSupport        = "touch_support"
	SignalHardwareConcurrency = "hardware_concurrency"
	SignalCanvasSample        = "canvas_sample"
	SignalAudioSample         = "audio_sample"
)

// recognizedKeys is the fixed serialization order for known signals. Missing
// keys serialize as empty strings so their absence is part of the signature.
var recognizedKeys = []string{
	SignalUserAgent,
	SignalScreenWidth,
	SignalScreenHeight,
	SignalPixelRatio,
	SignalTimezone,
	SignalLanguage,
	SignalPlatform,
	SignalTouchSupport,
	SignalHardwareConcurrency,
	SignalCanvasSample,
	SignalAudioSample,
}

// Signals is the heterogeneous signal bag as decoded from the client request.
// Values may be strings, booleans, or JSON numbers; any subset may be absent.
type Signals map[string]any

// Derive returns a deterministic device key and a consistency score in [0,1].
// Identical signal sets yield identical keys regardless of map iteration
// order. Derive never fails; an empty bag produces a valid low-entropy key.
func Derive(signals Signals) (deviceKey string, consistency float64) {
	var b strings.Builder
	for _, k := range recognizedKeys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(normalize(signals[k]))
		b.WriteByte('|')
	}

	var extra []string
	for k, v := range signals {
		if isRecognized(k) {
			continue
		}
		extra = append(extra, k+"="+normalize(v))
	}
	sort.Strings(extra)
	b.WriteString("raw:")
	b.WriteString(strings.Join(extra, "|"))

	h := fnv.New32a()
	_, _ = h.Write([]byte(b.String()))
	return fmt.Sprintf("%08x", h.Sum32()), score(signals)
}

func isRecognized(k string) bool {
	for _, r := range recognizedKeys {
		if r == k {
			return true
		}
	}
	return false
}

// normalize renders a signal value canonically. Missing or nil values render
// as the empty string.
func normalize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// score flags internal contradictions in the signal bag. The score is
// advisory: the arbiter logs it and only blocks when a minimum is configured.
func score(signals Signals) float64 {
	s := 1.0

	platform := strings.ToLower(normalize(signals[SignalPlatform]))
	touch := normalize(signals[SignalTouchSupport])
	mobile := strings.Contains(platform, "android") ||
		strings.Contains(platform, "iphone") ||
		strings.Contains(platform, "ipad") ||
		strings.Contains(platform, "ios")
	if mobile && touch == "false" {
		s -= 0.3
	}

	ua := strings.ToLower(normalize(signals[SignalUserAgent]))
	if strings.Contains(ua, "mobile") && !mobile && platform != "" {
		s -= 0.2
	}

	if w, ok := asFloat(signals[SignalScreenWidth]); ok && w <= 0 {
		s -= 0.25
	}
	if h, ok := asFloat(signals[SignalScreenHeight]); ok && h <= 0 {
		s -= 0.25
	}
	if r, ok := asFloat(signals[SignalPixelRatio]); ok && (r <= 0 || r > 5) {
		s -= 0.25
	}
	if c, ok := asFloat(signals[SignalHardwareConcurrency]); ok && (c < 1 || c > 128) {
		s -= 0.2
	}

	// Cross-check width against pixel ratio: CSS width times ratio is the
	// physical panel width, and nothing real exceeds 8192px.
	if w, wok := asFloat(signals[SignalScreenWidth]); wok && w > 0 {
		if r, rok := asFloat(signals[SignalPixelRatio]); rok && r > 0 && w*r > 8192 {
			s -= 0.2
		}
	}

	if s < 0 {
		return 0
	}
	return s
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
