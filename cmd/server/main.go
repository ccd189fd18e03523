// Server runs the attendance check-in HTTP API. With DATABASE_URL unset it
// falls back to in-memory stores for local development.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	attendancerepo "attendance-control-plane/internal/attendance/repository"
	"attendance-control-plane/internal/audit"
	auditrepo "attendance-control-plane/internal/audit/repository"
	"attendance-control-plane/internal/checkin"
	"attendance-control-plane/internal/clock"
	"attendance-control-plane/internal/config"
	"attendance-control-plane/internal/db"
	"attendance-control-plane/internal/device"
	devicerepo "attendance-control-plane/internal/device/repository"
	organizerrepo "attendance-control-plane/internal/organizer/repository"
	organizerservice "attendance-control-plane/internal/organizer/service"
	"attendance-control-plane/internal/policy/engine"
	policyrepo "attendance-control-plane/internal/policy/repository"
	rosterpkg "attendance-control-plane/internal/roster"
	rosterrepo "attendance-control-plane/internal/roster/repository"
	"attendance-control-plane/internal/security"
	"attendance-control-plane/internal/server"
	sessionrepo "attendance-control-plane/internal/session/repository"
	sessionservice "attendance-control-plane/internal/session/service"
	"attendance-control-plane/internal/telemetry"
	otelx "attendance-control-plane/internal/telemetry/otel"
	"attendance-control-plane/internal/telemetry/producer"
	"attendance-control-plane/internal/token"
	tokenrepo "attendance-control-plane/internal/token/repository"
)

type stores struct {
	organizers organizerrepo.Repository
	sessions   sessionrepo.Repository
	tokens     tokenrepo.Repository
	roster     rosterrepo.Repository
	attendance attendancerepo.Repository
	devices    devicerepo.Repository
	denials    auditrepo.Repository
	policies   policyrepo.Repository
}

func newStores(conn *sql.DB) stores {
	if conn == nil {
		return stores{
			organizers: organizerrepo.NewMemoryRepository(),
			sessions:   sessionrepo.NewMemoryRepository(),
			tokens:     tokenrepo.NewMemoryRepository(),
			roster:     rosterrepo.NewMemoryRepository(),
			attendance: attendancerepo.NewMemoryRepository(),
			devices:    devicerepo.NewMemoryRepository(),
			denials:    auditrepo.NewMemoryRepository(),
			policies:   policyrepo.NewMemoryRepository(),
		}
	}
	return stores{
		organizers: organizerrepo.NewPostgresRepository(conn),
		sessions:   sessionrepo.NewPostgresRepository(conn),
		tokens:     tokenrepo.NewPostgresRepository(conn),
		roster:     rosterrepo.NewPostgresRepository(conn),
		attendance: attendancerepo.NewPostgresRepository(conn),
		devices:    devicerepo.NewPostgresRepository(conn),
		denials:    auditrepo.NewPostgresRepository(conn),
		policies:   policyrepo.NewPostgresRepository(conn),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelx.NewProviders(ctx, cfg.OTLPEndpoint, "attendance-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	var conn *sql.DB
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
	} else {
		log.Println("DATABASE_URL is empty; running on in-memory stores")
	}
	st := newStores(conn)

	priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokenProvider := security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	clk := clock.System{}
	tokens := token.NewManager(st.tokens, clk)
	lookup := rosterpkg.NewLookup(st.roster)
	auth := organizerservice.NewAuthService(st.organizers, security.NewHasher(cfg.BcryptCost), tokenProvider)
	sessions := sessionservice.NewService(st.sessions, tokens, lookup, st.attendance, clk)
	policies := engine.NewOPAEvaluator(st.policies)

	defaults := engine.Defaults{
		DeviceBlockingEnabled: cfg.DeviceBlockingEnabled,
		MaxUses:               cfg.DeviceMaxUses,
		WindowSeconds:         cfg.DeviceWindowSeconds,
		Scope:                 cfg.DeviceScope,
		ConsistencyMin:        cfg.ConsistencyMin,
	}
	arb := checkin.NewArbiter(
		tokens, st.sessions, lookup, st.attendance,
		device.NewPolicyStore(st.devices), policies,
		audit.NewLogger(st.denials), clk, defaults, cfg.TokenAutoRotate,
	)

	var emitters []telemetry.EventEmitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
	}
	emitters = append(emitters, otelx.NewEventEmitter(providers.LoggerProvider))
	emitter := telemetry.NewMultiEmitter(emitters...)

	metrics, err := otelx.NewCheckinMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	srv := server.NewServer(auth, sessions, arb, st.attendance, st.denials, tokenProvider, policies, metrics, emitter)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go expiryLoop(ctx, sessions, cfg.ExpiryInterval())

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	// Let in-flight async emits drain before the exporters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("server stopped")
}

// expiryLoop expires sessions past end_time on a fixed interval.
func expiryLoop(ctx context.Context, sessions *sessionservice.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.ExpireDue(ctx); err != nil {
				log.Printf("expiry poll: %v", err)
			}
		}
	}
}
