package fingerprint

import (
	"fmt"
	"testing"
)

func TestDerive_Deterministic(t *testing.T) {
	signals := Signals{
		"user_agent":    "Mozilla/5.0 (X11; Linux x86_64)",
		"screen_width":  float64(1920),
		"screen_height": float64(1080),
		"pixel_ratio":   float64(1),
		"timezone":      "Europe/Berlin",
		"language":      "de-DE",
		"platform":      "Linux x86_64",
		"touch_support": false,
	}
	key1, score1 := Derive(signals)
	key2, score2 := Derive(signals)
	if key1 != key2 {
		t.Errorf("same signals produced different keys: %q vs %q", key1, key2)
	}
	if score1 != score2 {
		t.Errorf("same signals produced different scores: %v vs %v", score1, score2)
	}
	if len(key1) != 8 {
		t.Errorf("device key should be 8 hex chars, got %q", key1)
	}
}

func TestDerive_OrderIndependent(t *testing.T) {
	// Build the same logical bag repeatedly; Go map iteration order varies,
	// so repeated runs exercise order independence of the serialization.
	want, _ := Derive(Signals{"timezone": "UTC", "language": "en", "zz_custom": "1", "aa_custom": "2"})
	for i := 0; i < 50; i++ {
		got, _ := Derive(Signals{"aa_custom": "2", "zz_custom": "1", "language": "en", "timezone": "UTC"})
		if got != want {
			t.Fatalf("iteration %d: key %q != %q", i, got, want)
		}
	}
}

func TestDerive_EmptyBag(t *testing.T) {
	key, score := Derive(nil)
	if key == "" {
		t.Fatal("empty bag must still produce a key")
	}
	if score != 1.0 {
		t.Errorf("empty bag has nothing to contradict, want score 1.0, got %v", score)
	}
	key2, _ := Derive(Signals{})
	if key != key2 {
		t.Errorf("nil and empty bags should collide: %q vs %q", key, key2)
	}
}

func TestDerive_MissingSignalChangesKey(t *testing.T) {
	withTZ, _ := Derive(Signals{"timezone": "UTC"})
	withoutTZ, _ := Derive(Signals{})
	if withTZ == withoutTZ {
		t.Error("presence of a signal must be part of the signature")
	}
}

func TestDerive_ValueTypeNormalization(t *testing.T) {
	// "1920" as string and 1920 as number must canonicalize identically.
	a, _ := Derive(Signals{"screen_width": float64(1920)})
	b, _ := Derive(Signals{"screen_width": "1920"})
	if a != b {
		t.Errorf("number and equivalent string should normalize to same key: %q vs %q", a, b)
	}
}

func TestDerive_ConsistencyScore(t *testing.T) {
	cases := []struct {
		name    string
		signals Signals
		max     float64 // score must be strictly below 1 and at most max
	}{
		{
			name:    "mobile platform without touch",
			signals: Signals{"platform": "Android", "touch_support": false},
			max:     0.7,
		},
		{
			name:    "negative screen width",
			signals: Signals{"screen_width": float64(-1)},
			max:     0.75,
		},
		{
			name:    "absurd pixel ratio",
			signals: Signals{"pixel_ratio": float64(40)},
			max:     0.75,
		},
		{
			name:    "mobile UA on desktop platform",
			signals: Signals{"user_agent": "Mozilla/5.0 Mobile Safari", "platform": "Win32"},
			max:     0.8,
		},
		{
			name:    "pixel ratio inconsistent with screen width",
			signals: Signals{"screen_width": float64(3840), "pixel_ratio": float64(3)},
			max:     0.8,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, score := Derive(tc.signals)
			if score >= 1.0 {
				t.Errorf("contradictory signals should lower score, got %v", score)
			}
			if score > tc.max {
				t.Errorf("score %v above expected max %v", score, tc.max)
			}
			if score < 0 {
				t.Errorf("score must be clamped to [0,1], got %v", score)
			}
		})
	}
}

func TestDerive_PlausibleHiDPIKeepsFullScore(t *testing.T) {
	// A retina laptop: 1920 CSS px at ratio 2 is a real 3840px panel.
	_, score := Derive(Signals{"screen_width": float64(1920), "pixel_ratio": float64(2)})
	if score != 1.0 {
		t.Errorf("consistent width and ratio should not be penalized, got %v", score)
	}
}

func TestDerive_ScoreFloor(t *testing.T) {
	signals := Signals{
		"platform":             "Android",
		"touch_support":        false,
		"screen_width":         float64(-1),
		"screen_height":        float64(0),
		"pixel_ratio":          float64(100),
		"hardware_concurrency": float64(4096),
		"user_agent":           "Mobile",
	}
	_, score := Derive(signals)
	if score < 0 || score > 1 {
		t.Errorf("score out of range: %v", score)
	}
}

func TestDerive_UnrecognizedKeysContribute(t *testing.T) {
	a, _ := Derive(Signals{"gpu_vendor": "x"})
	b, _ := Derive(Signals{"gpu_vendor": "y"})
	if a == b {
		t.Error("unrecognized signals must still contribute to the key")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"  padded ", "padded"},
		{true, "true"},
		{false, "false"},
		{float64(2.5), "2.5"},
		{float64(3), "3"},
		{int(7), "7"},
		{int64(9), "9"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v", tc.in), func(t *testing.T) {
			if got := normalize(tc.in); got != tc.want {
				t.Errorf("normalize(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
