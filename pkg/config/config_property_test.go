package config

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_InvalidValuesFallBackToDefaults checks that non-positive
// durations and counts never survive validateAndApplyDefaults.
func TestProperty_InvalidValuesFallBackToDefaults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)
	defaults := Default()

	properties.Property("non-positive collector interval falls back to default", prop.ForAll(
		func(seconds int) bool {
			cfg := &Config{Collector: CollectorConfig{Interval: time.Duration(seconds) * time.Second}}
			validateAndApplyDefaults(cfg)
			return cfg.Collector.Interval == defaults.Collector.Interval
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("non-positive cache ttl falls back to default", prop.ForAll(
		func(seconds int) bool {
			cfg := &Config{Cache: CacheConfig{TTL: time.Duration(seconds) * time.Second}}
			validateAndApplyDefaults(cfg)
			return cfg.Cache.TTL == defaults.Cache.TTL
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("non-positive server port falls back to default", prop.ForAll(
		func(port int) bool {
			cfg := &Config{Server: ServerConfig{Port: port}}
			validateAndApplyDefaults(cfg)
			return cfg.Server.Port == defaults.Server.Port
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("valid collector interval is kept", prop.ForAll(
		func(seconds int) bool {
			want := time.Duration(seconds) * time.Second
			cfg := &Config{Collector: CollectorConfig{Interval: want}}
			validateAndApplyDefaults(cfg)
			return cfg.Collector.Interval == want
		},
		gen.IntRange(1, 86400),
	))

	properties.TestingRun(t)
}
