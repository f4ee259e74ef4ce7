package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"mm_sim/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 일부 값을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Simulation struct {
		Intervals      int             `yaml:"intervals"`
		InitBid        float64         `yaml:"init_bid"`
		InitAsk        float64         `yaml:"init_ask"`
		InitialCash    decimal.Decimal `yaml:"initial_cash"`
		InitialHolding int64           `yaml:"initial_holding"`
		Seed           uint64          `yaml:"seed"` // 0 = time based
	} `yaml:"simulation"`

	Market struct {
		Volatility float64 `yaml:"volatility"`
		Impact     float64 `yaml:"impact"`
		Pull       float64 `yaml:"pull"`
		Slippage   bool    `yaml:"slippage"`
	} `yaml:"market"`

	Strategy struct {
		Name   string         `yaml:"name"`
		Params map[string]any `yaml:"params"`
	} `yaml:"strategy"`

	Storage struct {
		Path string `yaml:"path"` // "" = user config dir
	} `yaml:"storage"`

	Logging struct {
		Level  string `yaml:"level"`
		Dir    string `yaml:"dir"`
		RunLog bool   `yaml:"run_log"`
	} `yaml:"logging"`

	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`
}

// DefaultConfig returns the built-in settings: 60 intervals from 100/100 with 10000 cash.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "mmsim"
	cfg.App.Version = "0.1.0"

	cfg.Simulation.Intervals = 60
	cfg.Simulation.InitBid = 100
	cfg.Simulation.InitAsk = 100
	cfg.Simulation.InitialCash = decimal.NewFromInt(10000)

	cfg.Market.Volatility = 0.5
	cfg.Market.Impact = 0.001
	cfg.Market.Slippage = true

	cfg.Strategy.Name = "simple"

	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	cfg.Logging.RunLog = true

	cfg.Server.Addr = ":8080"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Report.Dir = "reports"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 기본값 위에 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// 환경 변수 오버라이드 지원
	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	// 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadConfigOrDefault는 설정 파일이 없으면 기본값에 환경 변수만 적용합니다.
func LoadConfigOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err == nil || !errors.Is(err, domain.ErrConfigNotFound) {
		return cfg, err
	}

	cfg = DefaultConfig()
	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	s := c.Simulation
	if s.Intervals <= 0 {
		return &domain.ConfigError{Field: "simulation.intervals", Err: fmt.Errorf("must be positive, got %d", s.Intervals)}
	}
	if !domain.IsFinite(s.InitBid) || !domain.IsFinite(s.InitAsk) {
		return &domain.ConfigError{Field: "simulation.init_bid/init_ask", Err: domain.ErrNonFinite}
	}
	if s.InitialCash.IsNegative() {
		return &domain.ConfigError{Field: "simulation.initial_cash", Err: fmt.Errorf("must not be negative, got %s", s.InitialCash)}
	}
	if s.InitialHolding < 0 {
		return &domain.ConfigError{Field: "simulation.initial_holding", Err: fmt.Errorf("must not be negative, got %d", s.InitialHolding)}
	}

	m := c.Market
	if m.Volatility < 0 || !domain.IsFinite(m.Volatility) {
		return &domain.ConfigError{Field: "market.volatility", Err: fmt.Errorf("must be a non-negative number, got %v", m.Volatility)}
	}
	if !domain.IsFinite(m.Impact) {
		return &domain.ConfigError{Field: "market.impact", Err: domain.ErrNonFinite}
	}
	if m.Pull < 0 || m.Pull > 1 {
		return &domain.ConfigError{Field: "market.pull", Err: fmt.Errorf("must be in [0, 1], got %v", m.Pull)}
	}

	if c.Strategy.Name == "" {
		return &domain.ConfigError{Field: "strategy.name", Err: errors.New("is required")}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}

	return nil
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
// 우선순위: ENV > .env 파일 > 설정 파일
func overrideWithEnv(cfg *Config) error {
	_ = godotenv.Load() // optional .env in the working directory

	if path := os.Getenv("MMSIM_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("MMSIM_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if addr := os.Getenv("MMSIM_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if seed := os.Getenv("MMSIM_SEED"); seed != "" {
		n, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return &domain.ConfigError{Field: "MMSIM_SEED", Err: err}
		}
		cfg.Simulation.Seed = n
	}
	return nil
}
