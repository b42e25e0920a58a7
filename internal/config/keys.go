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
	kFloat
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
		key: "server.port", typ: kInt, env: "EMPATHYFINE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "EMPATHYFINE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.workspace_dir", typ: kString, env: "EMPATHYFINE_STORAGE_WORKSPACE_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.WorkspaceDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.WorkspaceDir },
	},
	{
		key: "trainer.step_interval_ms", typ: kInt, env: "EMPATHYFINE_TRAINER_STEP_INTERVAL_MS",
		apply:   func(cfg *Config, v any) { cfg.Trainer.StepIntervalMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Trainer.StepIntervalMS },
	},
	{
		key: "model.default", typ: kString, env: "EMPATHYFINE_MODEL_DEFAULT",
		apply:   func(cfg *Config, v any) { cfg.Model.Default = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Default },
	},
	{
		key: "model.response_delay_ms", typ: kInt, env: "EMPATHYFINE_MODEL_RESPONSE_DELAY_MS",
		apply:   func(cfg *Config, v any) { cfg.Model.ResponseDelayMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Model.ResponseDelayMS },
	},
	{
		key: "eval.empathy_threshold", typ: kFloat, env: "EMPATHYFINE_EVAL_EMPATHY_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Eval.EmpathyThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Eval.EmpathyThreshold },
	},
	{
		key: "log.level", typ: kString, env: "EMPATHYFINE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
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
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
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
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
