package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/ringguard/internal/overlap"
	"github.com/mohammed-shakir/ringguard/internal/validate"
)

type CacheCfg struct {
	Enabled   bool
	RedisAddr string
	TTL       time.Duration
	OpTimeout time.Duration
}

type AuditCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type Config struct {
	Addr          string
	LogLevel      string
	LogConsole    bool
	LogSampleN    int
	H3Res         int
	DetectMemo    int
	SequencerSize int
	Cache         CacheCfg
	Audit         AuditCfg
	Rules         validate.Rules
	Thresholds    overlap.Thresholds
}

func FromEnv() Config {
	res := getint("H3_RES", 9)
	if res < 0 || res > 15 {
		res = 9
	}

	return Config{
		Addr:          getenv("ADDR", ":8090"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogConsole:    getbool("LOG_CONSOLE", false),
		LogSampleN:    getint("LOG_SAMPLE_N", 0),
		H3Res:         res,
		DetectMemo:    getint("DETECT_MEMO_SIZE", 4096),
		SequencerSize: getint("SEQUENCER_SIZE", 10000),
		Cache: CacheCfg{
			Enabled:   getbool("VERDICT_CACHE_ENABLED", false),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			TTL:       getduration("VERDICT_CACHE_TTL", 5*time.Minute),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Audit: AuditCfg{
			Enabled: getbool("AUDIT_ENABLED", false),
			Brokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("AUDIT_TOPIC", "ringguard-overlap-decisions"),
			Queue:   getint("AUDIT_QUEUE", 1024),
		},
		Rules:      rulesFromEnv(),
		Thresholds: thresholdsFromEnv(),
	}
}

func rulesFromEnv() validate.Rules {
	r := validate.DefaultRules()
	r.MinAreaHectares = getfloat("RULE_MIN_AREA_HA", r.MinAreaHectares)
	if v := os.Getenv("RULE_MAX_AREA_HA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			r.MaxAreaHectares = &f
		}
	}
	r.MinVertices = getint("RULE_MIN_VERTICES", r.MinVertices)
	r.MaxVertices = getint("RULE_MAX_VERTICES", r.MaxVertices)
	r.AllowSelfIntersection = getbool("RULE_ALLOW_SELF_INTERSECTION", r.AllowSelfIntersection)
	r.DetectSpikes = getbool("RULE_DETECT_SPIKES", r.DetectSpikes)
	r.SpikeAngleThresholdDegrees = getfloat("RULE_SPIKE_ANGLE_DEG", r.SpikeAngleThresholdDegrees)
	r.DuplicateToleranceMeters = getfloat("RULE_DUPLICATE_TOLERANCE_M", r.DuplicateToleranceMeters)
	return r
}

func thresholdsFromEnv() overlap.Thresholds {
	th := overlap.DefaultThresholds()
	th.ShrunkMinOverlapPct = getfloat("OVERLAP_SHRUNK_PCT", th.ShrunkMinOverlapPct)
	th.SameSizeMinOverlapPct = getfloat("OVERLAP_SAME_SIZE_PCT", th.SameSizeMinOverlapPct)
	th.SameSizeAreaTolerance = getfloat("OVERLAP_SAME_SIZE_TOL", th.SameSizeAreaTolerance)
	th.ExpandedAreaTolerance = getfloat("OVERLAP_EXPANDED_TOL", th.ExpandedAreaTolerance)
	th.ExpandedFallbackTolerance = getfloat("OVERLAP_EXPANDED_FALLBACK_TOL", th.ExpandedFallbackTolerance)
	th.ShiftedAreaTolerance = getfloat("OVERLAP_SHIFTED_TOL", th.ShiftedAreaTolerance)
	return th
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// "a:9092, b:9092" -> [a:9092 b:9092]
func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
