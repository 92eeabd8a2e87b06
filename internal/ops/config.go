package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"orderexec/internal/fill"
	"orderexec/internal/model"
	"orderexec/pkg/conn"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	_envPrefix = "ORDEREXEC_"
)

// Amount is a decimal written either as a number or a string in the file.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*a = Amount(s)
	return nil
}

func (a Amount) parse(name string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s is not a decimal: %q", name, s)
	}
	return decimal.NewNullDecimal(d), nil
}

// FileConfig mirrors the config file layout. Unset fields keep their defaults.
type FileConfig struct {
	Validation ValidationConfig `json:"validation" yaml:"validation"`
	Simulator  SimulatorConfig  `json:"simulator" yaml:"simulator"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Events     EventsConfig     `json:"events" yaml:"events"`
	Profiling  ProfilingConfig  `json:"profiling" yaml:"profiling"`
}

type ValidationConfig struct {
	SupportedSymbols []string `json:"supportedSymbols" yaml:"supportedSymbols"`
	MaxOrderSize     Amount   `json:"maxOrderSize" yaml:"maxOrderSize"`
}

type SimulatorConfig struct {
	Enabled        *bool             `json:"enabled" yaml:"enabled"`
	TickMs         int64             `json:"tickMs" yaml:"tickMs"`
	MinFillPercent Amount            `json:"minFillPercent" yaml:"minFillPercent"`
	MaxFillPercent Amount            `json:"maxFillPercent" yaml:"maxFillPercent"`
	DefaultPrice   Amount            `json:"defaultPrice" yaml:"defaultPrice"`
	Prices         map[string]Amount `json:"prices" yaml:"prices"`
}

type StoreConfig struct {
	Driver      string         `json:"driver" yaml:"driver"`
	AutoMigrate *bool          `json:"autoMigrate" yaml:"autoMigrate"`
	Postgres    PostgresConfig `json:"postgres" yaml:"postgres"`
}

type PostgresConfig struct {
	Host               string            `json:"host" yaml:"host"`
	Port               int               `json:"port" yaml:"port"`
	User               string            `json:"user" yaml:"user"`
	Password           string            `json:"password" yaml:"password"`
	Database           string            `json:"database" yaml:"database"`
	SSLMode            string            `json:"sslMode" yaml:"sslMode"`
	Params             map[string]string `json:"params" yaml:"params"`
	ConnString         string            `json:"connString" yaml:"connString"`
	MaxOpenConns       int               `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns       int               `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetimeSec int               `json:"connMaxLifetimeSec" yaml:"connMaxLifetimeSec"`
}

type HTTPConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins"`
}

type EventsConfig struct {
	QueueSize   int    `json:"queueSize" yaml:"queueSize"`
	JournalPath string `json:"journalPath" yaml:"journalPath"`
}

type ProfilingConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	ApplicationName string `json:"applicationName" yaml:"applicationName"`
	ServerAddress   string `json:"serverAddress" yaml:"serverAddress"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Rules     model.Rules
	Fill      fill.Config
	Prices    PriceSpec
	Simulator SimulatorSpec
	Store     StoreSpec
	HTTP      HTTPConfig
	Events    EventsConfig
	Profiling ProfilingConfig
}

// PriceSpec seeds the reference price feed.
type PriceSpec struct {
	Default  decimal.Decimal
	BySymbol map[string]decimal.Decimal
}

type SimulatorSpec struct {
	Enabled bool
	Tick    time.Duration
}

type StoreSpec struct {
	Driver      string
	AutoMigrate bool
	Postgres    conn.Option
}

// Default returns the built-in configuration file values.
func Default() FileConfig {
	enabled, migrate := true, true
	return FileConfig{
		Simulator: SimulatorConfig{
			Enabled:        &enabled,
			TickMs:         1000,
			MinFillPercent: "0.25",
			MaxFillPercent: "0.50",
			DefaultPrice:   "100",
		},
		Store: StoreConfig{
			Driver:      StoreMemory,
			AutoMigrate: &migrate,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Events: EventsConfig{
			QueueSize: 1024,
		},
		Profiling: ProfilingConfig{
			ApplicationName: "orderexec",
			ServerAddress:   "http://localhost:4040",
		},
	}
}

// Load reads an optional .env file, then the config file at path (YAML or
// JSON by extension, skipped when path is empty), then ORDEREXEC_* variables,
// and resolves the result.
func Load(path string) (Loaded, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Loaded{}, errors.Wrap(err, "load .env")
	}

	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Loaded{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

func readFile(path string, cfg *FileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config").With("path", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = sonic.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}
	if err != nil {
		return errors.Wrap(err, "decode config").With("path", path)
	}
	return nil
}

// applyEnv overrides cfg with the ORDEREXEC_* variables that lookup finds.
func applyEnv(cfg *FileConfig, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(_envPrefix + name)
		return strings.TrimSpace(v), ok
	}

	if v, ok := get("SUPPORTED_SYMBOLS"); ok {
		cfg.Validation.SupportedSymbols = splitList(v)
	}
	if v, ok := get("MAX_ORDER_SIZE"); ok {
		cfg.Validation.MaxOrderSize = Amount(v)
	}
	if v, ok := get("SIMULATOR_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSIMULATOR_ENABLED: %w", _envPrefix, err)
		}
		cfg.Simulator.Enabled = &b
	}
	if v, ok := get("SIMULATOR_TICK_MS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSIMULATOR_TICK_MS: %w", _envPrefix, err)
		}
		cfg.Simulator.TickMs = n
	}
	if v, ok := get("MIN_FILL_PERCENT"); ok {
		cfg.Simulator.MinFillPercent = Amount(v)
	}
	if v, ok := get("MAX_FILL_PERCENT"); ok {
		cfg.Simulator.MaxFillPercent = Amount(v)
	}
	if v, ok := get("DEFAULT_PRICE"); ok {
		cfg.Simulator.DefaultPrice = Amount(v)
	}
	if v, ok := get("STORE_DRIVER"); ok {
		cfg.Store.Driver = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		cfg.Store.Postgres.ConnString = v
	}
	if v, ok := get("HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := get("ALLOWED_ORIGINS"); ok {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v, ok := get("JOURNAL_PATH"); ok {
		cfg.Events.JournalPath = v
	}
	if v, ok := get("PYROSCOPE_ADDR"); ok {
		cfg.Profiling.ServerAddress = v
		cfg.Profiling.Enabled = v != ""
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Resolve validates cfg and converts it into runtime values.
func Resolve(cfg FileConfig) (Loaded, error) {
	maxSize, err := cfg.Validation.MaxOrderSize.parse("validation.maxOrderSize")
	if err != nil {
		return Loaded{}, err
	}
	if maxSize.Valid && !maxSize.Decimal.IsPositive() {
		return Loaded{}, fmt.Errorf("validation.maxOrderSize must be > 0")
	}

	fillCfg, err := resolveFill(cfg.Simulator)
	if err != nil {
		return Loaded{}, err
	}
	prices, err := resolvePrices(cfg.Simulator)
	if err != nil {
		return Loaded{}, err
	}
	sim, err := resolveSimulator(cfg.Simulator)
	if err != nil {
		return Loaded{}, err
	}
	st, err := resolveStore(cfg.Store)
	if err != nil {
		return Loaded{}, err
	}

	if cfg.HTTP.Addr == "" {
		return Loaded{}, fmt.Errorf("http.addr is empty")
	}
	if cfg.Events.QueueSize <= 0 {
		return Loaded{}, fmt.Errorf("events.queueSize must be > 0")
	}
	if cfg.Profiling.Enabled && cfg.Profiling.ServerAddress == "" {
		return Loaded{}, fmt.Errorf("profiling.serverAddress is empty")
	}

	return Loaded{
		Rules:     model.NewRules(cfg.Validation.SupportedSymbols, maxSize),
		Fill:      fillCfg,
		Prices:    prices,
		Simulator: sim,
		Store:     st,
		HTTP:      cfg.HTTP,
		Events:    cfg.Events,
		Profiling: cfg.Profiling,
	}, nil
}

func resolveFill(cfg SimulatorConfig) (fill.Config, error) {
	lo, err := cfg.MinFillPercent.parse("simulator.minFillPercent")
	if err != nil {
		return fill.Config{}, err
	}
	hi, err := cfg.MaxFillPercent.parse("simulator.maxFillPercent")
	if err != nil {
		return fill.Config{}, err
	}
	if !lo.Valid || !hi.Valid {
		return fill.Config{}, fmt.Errorf("simulator fill percents are required")
	}
	out := fill.Config{MinFillPercent: lo.Decimal, MaxFillPercent: hi.Decimal}
	if err := out.Validate(); err != nil {
		return fill.Config{}, err
	}
	return out, nil
}

func resolvePrices(cfg SimulatorConfig) (PriceSpec, error) {
	def, err := cfg.DefaultPrice.parse("simulator.defaultPrice")
	if err != nil {
		return PriceSpec{}, err
	}
	if !def.Valid || !def.Decimal.IsPositive() {
		return PriceSpec{}, fmt.Errorf("simulator.defaultPrice must be > 0")
	}

	out := PriceSpec{Default: def.Decimal, BySymbol: make(map[string]decimal.Decimal, len(cfg.Prices))}
	for symbol, raw := range cfg.Prices {
		name, ok := model.NormalizeSymbol(symbol)
		if !ok {
			return PriceSpec{}, fmt.Errorf("simulator.prices has a blank symbol")
		}
		p, err := raw.parse("simulator.prices." + symbol)
		if err != nil {
			return PriceSpec{}, err
		}
		if !p.Valid || !p.Decimal.IsPositive() {
			return PriceSpec{}, fmt.Errorf("simulator.prices.%s must be > 0", symbol)
		}
		out.BySymbol[name] = p.Decimal
	}
	return out, nil
}

func resolveSimulator(cfg SimulatorConfig) (SimulatorSpec, error) {
	if cfg.TickMs <= 0 {
		return SimulatorSpec{}, fmt.Errorf("simulator.tickMs must be > 0")
	}
	out := SimulatorSpec{Enabled: true, Tick: time.Duration(cfg.TickMs) * time.Millisecond}
	if cfg.Enabled != nil {
		out.Enabled = *cfg.Enabled
	}
	return out, nil
}

func resolveStore(cfg StoreConfig) (StoreSpec, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = StoreMemory
	}
	if driver != StoreMemory && driver != StorePostgres {
		return StoreSpec{}, fmt.Errorf("store.driver must be %s or %s, got %q", StoreMemory, StorePostgres, cfg.Driver)
	}

	pg := cfg.Postgres
	if pg.Port < 0 || pg.MaxOpenConns < 0 || pg.MaxIdleConns < 0 || pg.ConnMaxLifetimeSec < 0 {
		return StoreSpec{}, fmt.Errorf("store.postgres numbers must be >= 0")
	}
	out := StoreSpec{
		Driver:      driver,
		AutoMigrate: true,
		Postgres: conn.Option{
			Host:            pg.Host,
			Port:            pg.Port,
			User:            pg.User,
			Password:        pg.Password,
			Database:        pg.Database,
			SSLMode:         pg.SSLMode,
			Params:          pg.Params,
			ConnString:      pg.ConnString,
			MaxOpenConns:    pg.MaxOpenConns,
			MaxIdleConns:    pg.MaxIdleConns,
			ConnMaxLifetime: time.Duration(pg.ConnMaxLifetimeSec) * time.Second,
		},
	}
	if cfg.AutoMigrate != nil {
		out.AutoMigrate = *cfg.AutoMigrate
	}
	return out, nil
}
