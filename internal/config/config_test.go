package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "acp-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "acp-auth")
	}
	if cfg.JWTAudience != "acp-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "acp-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if !cfg.DeviceBlockingEnabled {
		t.Error("DeviceBlockingEnabled should default to true")
	}
	if cfg.DeviceMaxUses != 1 {
		t.Errorf("DeviceMaxUses = %d, want 1", cfg.DeviceMaxUses)
	}
	if cfg.DeviceWindowSeconds != 3600 {
		t.Errorf("DeviceWindowSeconds = %d, want 3600", cfg.DeviceWindowSeconds)
	}
	if cfg.DeviceScope != "session" {
		t.Errorf("DeviceScope = %q, want %q", cfg.DeviceScope, "session")
	}
	if cfg.ConsistencyMin != 0 {
		t.Errorf("ConsistencyMin = %v, want 0", cfg.ConsistencyMin)
	}
	if !cfg.TokenAutoRotate {
		t.Error("TokenAutoRotate should default to true")
	}
	if cfg.TelemetryKafkaTopic != "acp-checkin-events" {
		t.Errorf("TelemetryKafkaTopic = %q, want default", cfg.TelemetryKafkaTopic)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("DEVICE_SCOPE", "global")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.DeviceScope != "global" {
		t.Errorf("DeviceScope = %q, want %q", cfg.DeviceScope, "global")
	}
}

func TestLoad_BcryptCostBounds(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid", "10", 10, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero defaults", "0", 12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_DeviceQuotaValidation(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  string
	}{
		{"zero max uses", "DEVICE_MAX_USES", "0"},
		{"zero window", "DEVICE_WINDOW_SECONDS", "0"},
		{"bad scope", "DEVICE_SCOPE", "classroom"},
		{"negative consistency", "CONSISTENCY_MIN", "-0.5"},
		{"consistency above one", "CONSISTENCY_MIN", "1.5"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestAccessTTL(t *testing.T) {
	testCases := []struct {
		name string
		ttl  string
		want time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid falls back", "invalid", 15 * time.Minute},
		{"zero falls back", "0", 15 * time.Minute},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("JWT_ACCESS_TTL", tc.ttl)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.AccessTTL(); got != tc.want {
				t.Errorf("AccessTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExpiryInterval(t *testing.T) {
	os.Clearenv()
	os.Setenv("EXPIRY_POLL_INTERVAL", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ExpiryInterval(); got != 5*time.Second {
		t.Errorf("ExpiryInterval = %v, want 5s", got)
	}

	os.Setenv("EXPIRY_POLL_INTERVAL", "garbage")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ExpiryInterval(); got != 30*time.Second {
		t.Errorf("ExpiryInterval = %v, want 30s fallback", got)
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name    string
		brokers string
		want    int
	}{
		{"empty", "", 0},
		{"single", "localhost:9092", 1},
		{"multiple with spaces", "a:9092, b:9092 ,c:9092", 3},
		{"trailing comma", "a:9092,", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("KAFKA_BROKERS", tc.brokers)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.TelemetryKafkaBrokersList(); len(got) != tc.want {
				t.Errorf("brokers = %v, want %d entries", got, tc.want)
			}
		})
	}
}
