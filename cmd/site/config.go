package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"contact-gateway/contactform/application"

	"gopkg.in/yaml.v3"
)

type config struct {
	listenAddr string
	logLevel   string
	logFormat  string

	allowedOrigins []string
	trustXFF       bool
	keyHeader      string
	maxBodyKB      int
	adminToken     string

	rateEnabled        bool
	rateExemptKeys     []string
	rateRPS            float64
	rateBurst          int
	retryAfter         time.Duration
	addHeaders         bool
	concurrencyMax     int
	concurrencyTimeout time.Duration

	contactPolicy application.Policy
	cleanupEvery  time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string

	statsEnabled   bool
	statsTrackKeys bool
	statsTTL       time.Duration

	mongoURI        string
	mongoDatabase   string
	mongoCollection string
	mongoTimeout    time.Duration

	smtpHost      string
	smtpPort      int
	smtpUser      string
	smtpPass      string
	smtpSSL       bool
	mailFrom      string
	mailTo        []string
	subjectPrefix string

	formTokenSecret string
	formTokenTTL    time.Duration
	spamRulesFile   string
	spamSoftAccept  bool
	spamRules       application.SpamRules
}

// spamRulesFile é o formato do arquivo SPAM_RULES_FILE.
// Valores do arquivo sobrescrevem os das variáveis de ambiente.
type spamRulesFile struct {
	MaxLinks        *int     `yaml:"maxLinks"`
	MinSubmitTime   string   `yaml:"minSubmitTime"`
	RequireToken    *bool    `yaml:"requireToken"`
	BlockedPatterns []string `yaml:"blockedPatterns"`
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.logLevel = os.Getenv("LOG_LEVEL")
	cfg.logFormat = os.Getenv("LOG_FORMAT")

	cfg.allowedOrigins = getenvList("ALLOWED_ORIGINS")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.keyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.maxBodyKB = getenvIntDefault("MAX_BODY_KB", 64)
	cfg.adminToken = os.Getenv("ADMIN_TOKEN")

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateExemptKeys = getenvList("RATE_EXEMPT_KEYS")
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 5)
	cfg.rateBurst = getenvIntDefault("RATE_BURST", 20)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	def := application.DefaultPolicy()
	cfg.contactPolicy = application.Policy{
		MaxAttempts: getenvIntDefault("CONTACT_MAX_ATTEMPTS", def.MaxAttempts),
		Window:      getenvDurationDefault("CONTACT_WINDOW", def.Window),
		BlockFor:    getenvDurationDefault("CONTACT_BLOCK", def.BlockFor),
	}
	cfg.cleanupEvery = getenvDurationDefault("CLEANUP_EVERY", 5*time.Minute)

	cfg.redisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.redisPrefix = getenvDefault("REDIS_PREFIX", "contact")

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", true)
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 7*24*time.Hour)

	cfg.mongoURI = strings.TrimSpace(os.Getenv("MONGO_URI"))
	cfg.mongoDatabase = getenvDefault("MONGO_DB", "leads")
	cfg.mongoCollection = getenvDefault("MONGO_COLLECTION", "contact_leads")
	cfg.mongoTimeout = getenvDurationDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second)

	cfg.smtpHost = strings.TrimSpace(os.Getenv("SMTP_HOST"))
	cfg.smtpPort = getenvIntDefault("SMTP_PORT", 587)
	cfg.smtpUser = os.Getenv("SMTP_USER")
	cfg.smtpPass = os.Getenv("SMTP_PASS")
	cfg.smtpSSL = getenvBoolDefault("SMTP_SSL", false)
	cfg.mailFrom = getenvDefault("MAIL_FROM", cfg.smtpUser)
	cfg.mailTo = getenvList("MAIL_TO")
	cfg.subjectPrefix = getenvDefault("MAIL_SUBJECT_PREFIX", "[Contact]")

	cfg.formTokenSecret = os.Getenv("FORM_TOKEN_SECRET")
	cfg.formTokenTTL = getenvDurationDefault("FORM_TOKEN_TTL", 2*time.Hour)
	cfg.spamRulesFile = os.Getenv("SPAM_RULES_FILE")
	cfg.spamSoftAccept = getenvBoolDefault("SPAM_SOFT_ACCEPT", false)

	patterns := getenvList("SPAM_BLOCKED_PATTERNS")
	cfg.spamRules = application.SpamRules{
		MaxLinks:      getenvIntDefault("SPAM_MAX_LINKS", 3),
		MinSubmitTime: getenvDurationDefault("MIN_SUBMIT_TIME", 3*time.Second),
		RequireToken:  getenvBoolDefault("REQUIRE_FORM_TOKEN", false),
	}
	if cfg.spamRulesFile != "" {
		var err error
		patterns, err = applySpamRulesFile(cfg.spamRulesFile, &cfg.spamRules, patterns)
		if err != nil {
			return config{}, err
		}
	}
	compiled, err := application.CompilePatterns(patterns)
	if err != nil {
		return config{}, fmt.Errorf("SPAM_BLOCKED_PATTERNS: %w", err)
	}
	cfg.spamRules.BlockedPatterns = compiled

	// o header de chave só pode vir do proxy da frente
	if cfg.keyHeader != "" && !cfg.trustXFF {
		return config{}, errors.New("RATE_KEY_HEADER requires TRUST_XFF=true (header must be set by a trusted proxy)")
	}
	if cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.maxBodyKB <= 0 {
		return config{}, errors.New("MAX_BODY_KB must be > 0")
	}
	if cfg.contactPolicy.MaxAttempts <= 0 || cfg.contactPolicy.Window <= 0 || cfg.contactPolicy.BlockFor <= 0 {
		return config{}, errors.New("CONTACT_MAX_ATTEMPTS, CONTACT_WINDOW and CONTACT_BLOCK must be > 0")
	}
	if cfg.spamRules.RequireToken && cfg.formTokenSecret == "" {
		return config{}, errors.New("FORM_TOKEN_SECRET is required when REQUIRE_FORM_TOKEN=true")
	}
	if cfg.smtpHost != "" && len(cfg.mailTo) == 0 {
		return config{}, errors.New("MAIL_TO is required when SMTP_HOST is set")
	}
	return cfg, nil
}

func applySpamRulesFile(path string, rules *application.SpamRules, patterns []string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read SPAM_RULES_FILE: %w", err)
	}
	var f spamRulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse SPAM_RULES_FILE: %w", err)
	}

	if f.MaxLinks != nil {
		rules.MaxLinks = *f.MaxLinks
	}
	if f.RequireToken != nil {
		rules.RequireToken = *f.RequireToken
	}
	if f.MinSubmitTime != "" {
		d, err := time.ParseDuration(f.MinSubmitTime)
		if err != nil {
			return nil, fmt.Errorf("SPAM_RULES_FILE minSubmitTime: %w", err)
		}
		rules.MinSubmitTime = d
	}
	return append(patterns, f.BlockedPatterns...), nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getenvList(k string) []string {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
