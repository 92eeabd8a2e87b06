package ops

import (
	"testing"
	"time"

	"orderexec/internal/model"
	"orderexec/internal/model/enum"
	"orderexec/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLoadDefaults(t *testing.T) {
	loaded, err := Load("")
	require.NoError(t, err)

	assert.True(t, loaded.Fill.MinFillPercent.Equal(d("0.25")))
	assert.True(t, loaded.Fill.MaxFillPercent.Equal(d("0.5")))
	assert.True(t, loaded.Prices.Default.Equal(d("100")))
	assert.Empty(t, loaded.Prices.BySymbol)
	assert.Equal(t, SimulatorSpec{Enabled: true, Tick: time.Second}, loaded.Simulator)
	assert.Equal(t, StoreMemory, loaded.Store.Driver)
	assert.True(t, loaded.Store.AutoMigrate)
	assert.Equal(t, ":8080", loaded.HTTP.Addr)
	assert.Equal(t, 1024, loaded.Events.QueueSize)
	assert.False(t, loaded.Profiling.Enabled)

	// no allow-list and no size limit
	_, err = loaded.Rules.Validate(model.OrderRequest{
		Symbol:   "anything",
		Side:     enum.SideBuy,
		Type:     enum.OrderTypeMarket,
		Quantity: decimal.NewNullDecimal(d("1000000000")),
	})
	assert.NoError(t, err)
}

func TestLoadYAML(t *testing.T) {
	loaded, err := Load("testdata/config.yaml")
	require.NoError(t, err)

	assert.True(t, loaded.Fill.MinFillPercent.Equal(d("0.5")))
	assert.True(t, loaded.Fill.MaxFillPercent.Equal(d("0.1")))
	assert.True(t, loaded.Prices.Default.Equal(d("42.5")))
	require.Contains(t, loaded.Prices.BySymbol, "AAPL")
	assert.True(t, loaded.Prices.BySymbol["AAPL"].Equal(d("190")))
	assert.Equal(t, SimulatorSpec{Enabled: false, Tick: 250 * time.Millisecond}, loaded.Simulator)

	assert.Equal(t, StorePostgres, loaded.Store.Driver)
	assert.False(t, loaded.Store.AutoMigrate)
	assert.Equal(t, "db", loaded.Store.Postgres.Host)
	assert.Equal(t, 6543, loaded.Store.Postgres.Port)
	assert.Equal(t, 8, loaded.Store.Postgres.MaxOpenConns)
	assert.Equal(t, time.Minute, loaded.Store.Postgres.ConnMaxLifetime)

	assert.Equal(t, ":9090", loaded.HTTP.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, loaded.HTTP.AllowedOrigins)
	assert.Equal(t, EventsConfig{QueueSize: 16, JournalPath: "/tmp/events.jsonl"}, loaded.Events)

	req := model.OrderRequest{Symbol: "msft", Side: enum.SideSell, Type: enum.OrderTypeMarket, Quantity: decimal.NewNullDecimal(d("1"))}
	_, err = loaded.Rules.Validate(req)
	assert.NoError(t, err)

	req.Symbol = "GOOG"
	_, err = loaded.Rules.Validate(req)
	assert.ErrorIs(t, err, exception.ErrUnsupportedSymbol)

	req.Symbol = "AAPL"
	req.Quantity = decimal.NewNullDecimal(d("1000.000001"))
	_, err = loaded.Rules.Validate(req)
	assert.ErrorIs(t, err, exception.ErrOrderTooLarge)
}

func TestLoadJSON(t *testing.T) {
	loaded, err := Load("testdata/config.json")
	require.NoError(t, err)

	assert.True(t, loaded.Fill.MinFillPercent.Equal(d("0.3")))
	assert.True(t, loaded.Fill.MaxFillPercent.Equal(d("0.3")))
	assert.True(t, loaded.Prices.Default.Equal(d("100")), "default kept")
	assert.True(t, loaded.Prices.BySymbol["ETH"].Equal(d("3000")))
	assert.Equal(t, "127.0.0.1:8081", loaded.HTTP.Addr)
	assert.True(t, loaded.Simulator.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ORDEREXEC_HTTP_ADDR", ":7000")
	t.Setenv("ORDEREXEC_SIMULATOR_ENABLED", "false")
	t.Setenv("ORDEREXEC_SIMULATOR_TICK_MS", "50")
	t.Setenv("ORDEREXEC_MIN_FILL_PERCENT", "0.1")
	t.Setenv("ORDEREXEC_SUPPORTED_SYMBOLS", "aapl, ,eth")
	t.Setenv("ORDEREXEC_STORE_DRIVER", "Postgres")
	t.Setenv("ORDEREXEC_DATABASE_URL", "postgres://u@h/db")

	loaded, err := Load("testdata/config.json")
	require.NoError(t, err)

	assert.Equal(t, ":7000", loaded.HTTP.Addr)
	assert.Equal(t, SimulatorSpec{Enabled: false, Tick: 50 * time.Millisecond}, loaded.Simulator)
	assert.True(t, loaded.Fill.MinFillPercent.Equal(d("0.1")))
	assert.Equal(t, StorePostgres, loaded.Store.Driver)
	assert.Equal(t, "postgres://u@h/db", loaded.Store.Postgres.DSN())

	req := model.OrderRequest{Symbol: "ETH", Side: enum.SideBuy, Type: enum.OrderTypeMarket, Quantity: decimal.NewNullDecimal(d("1"))}
	_, err = loaded.Rules.Validate(req)
	assert.NoError(t, err)
	req.Symbol = "MSFT"
	_, err = loaded.Rules.Validate(req)
	assert.ErrorIs(t, err, exception.ErrUnsupportedSymbol)
}

func TestLoadEnvBadValue(t *testing.T) {
	t.Setenv("ORDEREXEC_SIMULATOR_TICK_MS", "soon")
	_, err := Load("")
	assert.ErrorContains(t, err, "SIMULATOR_TICK_MS")
}

func TestLoadFileErrors(t *testing.T) {
	_, err := Load("testdata/missing.yaml")
	assert.Error(t, err)

	_, err = Load("config.go")
	assert.ErrorContains(t, err, "unsupported config extension")
}

func TestResolveRejects(t *testing.T) {
	cases := map[string]func(*FileConfig){
		"fill percent above one": func(c *FileConfig) { c.Simulator.MaxFillPercent = "1.5" },
		"negative fill percent":  func(c *FileConfig) { c.Simulator.MinFillPercent = "-0.1" },
		"missing fill percent":   func(c *FileConfig) { c.Simulator.MinFillPercent = "" },
		"not a decimal":          func(c *FileConfig) { c.Simulator.DefaultPrice = "cheap" },
		"zero default price":     func(c *FileConfig) { c.Simulator.DefaultPrice = "0" },
		"negative symbol price":  func(c *FileConfig) { c.Simulator.Prices = map[string]Amount{"AAPL": "-1"} },
		"blank symbol price":     func(c *FileConfig) { c.Simulator.Prices = map[string]Amount{" ": "1"} },
		"zero tick":              func(c *FileConfig) { c.Simulator.TickMs = 0 },
		"zero max order size":    func(c *FileConfig) { c.Validation.MaxOrderSize = "0" },
		"unknown driver":         func(c *FileConfig) { c.Store.Driver = "sqlite" },
		"negative pool size":     func(c *FileConfig) { c.Store.Postgres.MaxOpenConns = -1 },
		"empty http addr":        func(c *FileConfig) { c.HTTP.Addr = "" },
		"empty queue":            func(c *FileConfig) { c.Events.QueueSize = 0 },
		"profiling without addr": func(c *FileConfig) { c.Profiling = ProfilingConfig{Enabled: true} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			_, err := Resolve(cfg)
			assert.Error(t, err)
		})
	}
}

func TestAmountUnmarshalJSON(t *testing.T) {
	var a Amount
	require.NoError(t, a.UnmarshalJSON([]byte(`"1.50"`)))
	assert.Equal(t, Amount("1.50"), a)
	require.NoError(t, a.UnmarshalJSON([]byte(`2`)))
	assert.Equal(t, Amount("2"), a)
	require.NoError(t, a.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, Amount(""), a)
}
