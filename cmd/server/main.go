package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"veritas/internal/audit"
	"veritas/internal/ballot"
	ballotmetrics "veritas/internal/ballot/metrics"
	"veritas/internal/fingerprint"
	"veritas/internal/identity"
	identitymetrics "veritas/internal/identity/metrics"
	"veritas/internal/jwttoken"
	"veritas/internal/platform/config"
	"veritas/internal/platform/httpserver"
	"veritas/internal/platform/logger"
	platformredis "veritas/internal/platform/redis"
	"veritas/internal/posture"
	posturemetrics "veritas/internal/posture/metrics"
	"veritas/internal/pulse"
	"veritas/internal/ratelimit"
	"veritas/internal/reputation"
	"veritas/internal/scanner"
	scannermetrics "veritas/internal/scanner/metrics"
	httptransport "veritas/internal/transport/http"
	"veritas/internal/valuation"
)

// main wires dependencies and runs the process lifecycle. Every optional
// backend (redis, postgres, kafka) degrades to an in-process variant so a
// bare `go run` still yields a working engine.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// newPostureStore picks the posture backing. Deliberately unconfigured
// redis gets the single-instance memory store (GREEN); configured but
// unreachable redis gets no store at all, which forces every read onto
// the fail-safe path until a restart with the cache back.
func newPostureStore(rdb *goredis.Client, configured bool) posture.Store {
	switch {
	case rdb != nil:
		return posture.NewRedisStore(rdb)
	case configured:
		return nil
	default:
		return posture.NewInMemoryStore()
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tunables := config.Defaults()
	if cfg.TunablesPath != "" {
		loaded, err := config.LoadFile(cfg.TunablesPath)
		if err != nil {
			return err
		}
		tunables = loaded
	}
	tunableStore := config.NewStore(tunables)

	// A configured but unreachable cache is transient infrastructure, not
	// a startup failure: the engine comes up degraded and posture reads
	// fail safe to YELLOW until the cache returns.
	redisConfigured := cfg.RedisURL != ""
	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Warn("redis unreachable, starting degraded", "error", err)
		redisClient = nil
	}
	var rdb *goredis.Client
	if redisClient != nil {
		defer redisClient.Close()
		rdb = redisClient.Client
	} else if !redisConfigured {
		log.Warn("redis not configured, using in-process fallbacks")
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
	} else {
		log.Warn("postgres not configured, state is in-memory only")
	}

	// Audit pipeline: emitters never block, the worker persists and fans
	// out to the optional kafka sink.
	var auditStore audit.Store
	if db != nil {
		auditStore = audit.NewPostgresStore(db)
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	var auditSink audit.Sink
	if cfg.KafkaSeeds != "" {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaSeeds, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		auditSink = kafkaSink
	}
	auditPublisher := audit.NewPublisher(1024, log)
	auditWorker := audit.NewWorker(auditStore, auditSink, auditPublisher.Events(), log)

	postureController := posture.NewController(newPostureStore(rdb, redisConfigured), log, posturemetrics.New(), auditPublisher)

	extractor := fingerprint.New(tunableStore)
	dnaScanner := scanner.New(tunableStore, scannermetrics.New())

	var identityStore identity.Store
	if db != nil {
		identityStore = identity.NewPostgresStore(db)
	} else {
		identityStore = identity.NewInMemoryStore()
	}
	identityService := identity.NewService(identityStore, tunableStore, cfg.NationalIDSalt, log, identitymetrics.New(), auditPublisher)

	var limiter ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewRedis(rdb, time.Hour, log)
	} else {
		limiter = ratelimit.NewInMemory(time.Hour)
	}

	var pulsePublisher pulse.Publisher = pulse.NopPublisher{}
	if rdb != nil {
		pulsePublisher = pulse.NewRedisPublisher(rdb, log)
	}

	var ballotStore ballot.Store
	if db != nil {
		ballotStore = ballot.NewPostgresStore(db)
	} else {
		ballotStore = ballot.NewInMemoryStore()
	}
	ballotService := ballot.NewService(
		ballotStore,
		identityService,
		limiter,
		reputation.NewEngine(tunableStore),
		tunableStore,
		pulsePublisher,
		auditPublisher,
		log,
		ballotmetrics.New(),
	)

	sweeper := reputation.NewSweeper(clockwork.NewRealClock(), tunableStore, ballotService, log)

	tokens := jwttoken.New(cfg.JWTSigningKey, cfg.JWTIssuer)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		TokenValidator: tokens,
		Classifier:     scanner.NewMiddleware(extractor, dnaScanner, postureController, log),
		Scanner:        scanner.NewHandler(extractor, dnaScanner, postureController, log),
		Identity:       identity.NewHandler(identityService, log),
		Ballot:         ballot.NewHandler(ballotService, log),
		Posture:        posture.NewHandler(postureController, log),
		Audit:          audit.NewHandler(auditStore, log),
		Valuation:      valuation.NewHandler(identityService, log),
	})

	srv := httpserver.New(cfg.Addr, router)

	// The worker runs on its own context so it keeps consuming during the
	// post-shutdown drain.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = auditWorker.Run(workerCtx)
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sweeper.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.TunablesPath != "" {
		watcher := config.NewWatcher(cfg.TunablesPath, tunableStore, log)
		g.Go(func() error {
			err := watcher.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		log.Info("starting veritas", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Let the worker flush whatever is still queued before it stops.
	auditPublisher.Drain(5 * time.Second)
	stopWorker()
	<-workerDone

	return err
}
