package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "RLOC_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "RLOC_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "mongo.uri", typ: kString, env: "RLOC_MONGO_URI",
		apply:   func(cfg *Config, v any) { cfg.Mongo.URI = v.(string) },
		extract: func(cfg Config) any { return cfg.Mongo.URI },
	},
	{
		key: "mongo.collection", typ: kString, env: "RLOC_MONGO_COLLECTION",
		apply:   func(cfg *Config, v any) { cfg.Mongo.Collection = v.(string) },
		extract: func(cfg Config) any { return cfg.Mongo.Collection },
	},
	{
		key: "mongo.connect_timeout", typ: kString, env: "RLOC_MONGO_CONNECT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Mongo.ConnectTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Mongo.ConnectTimeout },
	},
	{
		key: "locator.strategy", typ: kString, env: "RLOC_LOCATOR_STRATEGY",
		apply:   func(cfg *Config, v any) { cfg.Locator.Strategy = v.(string) },
		extract: func(cfg Config) any { return cfg.Locator.Strategy },
	},
	{
		key: "locator.parallelism", typ: kInt, env: "RLOC_LOCATOR_PARALLELISM",
		apply:   func(cfg *Config, v any) { cfg.Locator.Parallelism = v.(int) },
		extract: func(cfg Config) any { return cfg.Locator.Parallelism },
	},
	{
		key: "locator.timeout", typ: kString, env: "RLOC_LOCATOR_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Locator.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Locator.Timeout },
	},
	{
		key: "storage.data_dir", typ: kString, env: "RLOC_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.history_enabled", typ: kBool, env: "RLOC_STORAGE_HISTORY_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Storage.HistoryEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Storage.HistoryEnabled },
	},
	{
		key: "log.level", typ: kString, env: "RLOC_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
