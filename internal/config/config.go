// Package config loads engine settings from defaults, an optional config
// file and PLUGG_* environment variables.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/analytics"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/spacedrep"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

// EnvPrefix prefixes every environment override, e.g. PLUGG_STORE_DSN.
const EnvPrefix = "PLUGG"

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Mastery    mastery.Params   `mapstructure:"mastery"`
	SpacedRep  SpacedRepConfig  `mapstructure:"spacedrep"`
	Analytics  analytics.Params `mapstructure:"analytics"`
	Curriculum CurriculumConfig `mapstructure:"curriculum"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode" validate:"oneof=dev prod"`
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// StoreConfig selects the backend. An empty DSN with the sqlite driver
// means the default database path.
type StoreConfig struct {
	Driver string      `mapstructure:"driver" validate:"oneof=sqlite postgres redis memory"`
	DSN    string      `mapstructure:"dsn" validate:"required_if=Driver postgres"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

type SpacedRepConfig struct {
	spacedrep.Params `mapstructure:",squash"`
	Rules            []spacedrep.Rule `mapstructure:"rules" validate:"dive"`
}

type CurriculumConfig struct {
	// File replaces the built-in catalog when set.
	File string `mapstructure:"file"`
}

// Load reads configuration. path may be empty. Environment variables take
// precedence over the file, which takes precedence over defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// decodeHook keeps viper's default hooks and resolves policy aliases such
// as "srs" to their canonical names.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		policyHook,
	)
}

var policyType = reflect.TypeOf(spacedrep.Policy(""))

func policyHook(from, to reflect.Type, data any) (any, error) {
	if to != policyType || from.Kind() != reflect.String {
		return data, nil
	}
	return spacedrep.ParsePolicy(reflect.ValueOf(data).String())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "warn")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "plugg:")

	m := mastery.DefaultParams()
	v.SetDefault("mastery.initial_probability", m.InitialProbability)
	v.SetDefault("mastery.mastery_threshold", m.MasteryThreshold)
	v.SetDefault("mastery.learning_floor", m.LearningFloor)
	v.SetDefault("mastery.learn_rate", m.LearnRate)
	v.SetDefault("mastery.penalty_rate", m.PenaltyRate)
	v.SetDefault("mastery.fast_response_ms", m.FastResponseMs)
	v.SetDefault("mastery.slow_response_ms", m.SlowResponseMs)
	v.SetDefault("mastery.min_speed_factor", m.MinSpeedFactor)
	v.SetDefault("mastery.medium_from", m.MediumFrom)
	v.SetDefault("mastery.hard_from", m.HardFrom)

	sr := spacedrep.DefaultParams()
	v.SetDefault("spacedrep.base_interval_hours", sr.BaseIntervalHours)
	v.SetDefault("spacedrep.early_repetitions", sr.EarlyRepetitions)
	v.SetDefault("spacedrep.early_multiplier", sr.EarlyMultiplier)
	v.SetDefault("spacedrep.min_ease", sr.MinEase)
	v.SetDefault("spacedrep.max_ease", sr.MaxEase)
	v.SetDefault("spacedrep.initial_ease", sr.InitialEase)
	v.SetDefault("spacedrep.ease_step_up", sr.EaseStepUp)
	v.SetDefault("spacedrep.ease_step_down", sr.EaseStepDown)
	v.SetDefault("spacedrep.max_interval_hours", sr.MaxIntervalHours)
	rules := make([]map[string]any, 0, len(spacedrep.DefaultRules()))
	for _, r := range spacedrep.DefaultRules() {
		rules = append(rules, map[string]any{
			"subject":      r.Subject,
			"skill_prefix": r.SkillPrefix,
			"policy":       string(r.Policy),
		})
	}
	v.SetDefault("spacedrep.rules", rules)

	a := analytics.DefaultParams()
	v.SetDefault("analytics.lookback_days", a.LookbackDays)
	v.SetDefault("analytics.half_life_days", a.HalfLifeDays)
	v.SetDefault("analytics.recent_error_weight", a.RecentErrorWeight)
	v.SetDefault("analytics.time_zone", a.TimeZone)

	v.SetDefault("curriculum.file", "")
}
