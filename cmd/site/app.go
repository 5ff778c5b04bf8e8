package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"contact-gateway/contactform"
	"contact-gateway/contactform/application"
	"contact-gateway/contactform/domain"
	"contact-gateway/contactform/infra"
	"contact-gateway/logging"
	"contact-gateway/middleware/ratelimit"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// app reúne as dependências montadas a partir do config.
type app struct {
	logger *slog.Logger

	rdb   *redis.Client
	mongo *mongo.Client

	buckets *ratelimit.BucketStore
	stats   domain.StatsStore
	limiter application.Limiter
	contact *contactform.Handler
}

func newApp(ctx context.Context, cfg config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	if cfg.redisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := a.rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	var entries domain.EntryStore = infra.NewMemoryEntryStore()
	if a.rdb != nil {
		entries = infra.NewRedisEntryStore(a.rdb, infra.WithEntryPrefix(cfg.redisPrefix+":ratelimit"))
	}

	var (
		stats       domain.StatsStore
		statsReader contactform.StatsReader
	)
	if cfg.statsEnabled {
		if a.rdb != nil {
			s := infra.NewRedisStatsStore(a.rdb,
				infra.WithStatsPrefix(cfg.redisPrefix+":stats"),
				infra.WithStatsTTL(cfg.statsTTL),
				infra.WithStatsTrackKeys(cfg.statsTrackKeys),
			)
			stats, statsReader = s, s
		} else {
			s := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.statsTrackKeys))
			stats, statsReader = s, s
		}
	}

	var leads domain.LeadRepository = infra.NewMemoryLeadRepository(0)
	if cfg.mongoURI != "" {
		repo, err := a.connectMongo(ctx, cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		leads = repo
	}

	a.stats = stats

	var notifier domain.Notifier
	if cfg.smtpHost != "" {
		notifier = infra.NewEmailNotifier(infra.SMTPConfig{
			Host: cfg.smtpHost,
			Port: cfg.smtpPort,
			User: cfg.smtpUser,
			Pass: cfg.smtpPass,
			SSL:  cfg.smtpSSL,
		}, cfg.mailFrom, cfg.mailTo, cfg.subjectPrefix)
	}

	var tokens *application.FormTokens
	if cfg.formTokenSecret != "" {
		tokens = &application.FormTokens{
			Secret: []byte(cfg.formTokenSecret),
			Issuer: "contact-gateway",
			TTL:    cfg.formTokenTTL,
		}
	}

	a.limiter = application.Limiter{Store: entries, Policy: cfg.contactPolicy}
	svc := application.ContactService{
		Validator: application.NewValidator(),
		Spam:      application.SpamFilter{Rules: cfg.spamRules, Tokens: tokens},
		Limiter:   a.limiter,
		Leads:     leads,
		Notifier:  notifier,
		Stats:     stats,
	}

	opts := contactform.Options{
		Service:        svc,
		Stats:          statsReader,
		KeyFn:          ratelimit.DefaultKeyFunc(cfg.keyHeader, cfg.trustXFF),
		MaxBodyBytes:   int64(cfg.maxBodyKB) * 1024,
		SpamSoftAccept: cfg.spamSoftAccept,
		AdminToken:     cfg.adminToken,
	}
	// interface nil de verdade: *FormTokens nil dentro da interface registraria a rota
	if tokens != nil {
		opts.Tokens = tokens
	}
	a.contact = contactform.NewHandler(opts)

	if cfg.rateEnabled {
		a.buckets = ratelimit.NewBucketStore(cfg.rateRPS, cfg.rateBurst,
			ratelimit.WithExemptKeys(cfg.rateExemptKeys...))
	}
	return a, nil
}

// recordThrottle leva as rejeições do throttle do site para as mesmas estatísticas do formulário.
func (a *app) recordThrottle(r *http.Request, key string) {
	logger := logging.FromContext(r.Context())
	logger.Warn("site throttle", "client", key)
	if a.stats == nil {
		return
	}
	ev := domain.StatsEvent{Key: domain.Key(key), Outcome: domain.OutcomeThrottled, At: time.Now()}
	if err := a.stats.Record(r.Context(), ev); err != nil {
		logger.Debug("stats record failed", "err", err)
	}
}

func (a *app) connectMongo(ctx context.Context, cfg config) (*infra.MongoLeadRepository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.mongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	a.mongo = client
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := infra.NewMongoLeadRepository(client.Database(cfg.mongoDatabase), cfg.mongoCollection)
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		a.logger.Warn("lead indexes not created", "err", err)
	}
	return repo, nil
}

// start liga as rotinas de limpeza; param quando ctx encerra.
func (a *app) start(ctx context.Context, cfg config) {
	a.limiter.StartJanitor(ctx, cfg.cleanupEvery, a.logger)
	if a.buckets != nil {
		a.buckets.StartJanitor(ctx)
	}
}

func (a *app) ping(ctx context.Context) map[string]string {
	out := map[string]string{}
	if a.rdb != nil {
		out["redis"] = statusOf(a.rdb.Ping(ctx).Err())
	}
	if a.mongo != nil {
		out["mongo"] = statusOf(a.mongo.Ping(ctx, readpref.Primary()))
	}
	return out
}

func statusOf(err error) string {
	if err != nil {
		return "down: " + err.Error()
	}
	return "ok"
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.mongo.Disconnect(ctx)
	}
}
