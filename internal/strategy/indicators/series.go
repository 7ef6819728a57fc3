package indicators

import (
	"fmt"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
)

// Config holds the indicator periods for one series.
type Config struct {
	EMAFastPeriod    int     // e.g. 9
	EMASlowPeriod    int     // e.g. 21
	RSIPeriod        int     // e.g. 14
	SupertrendPeriod int     // e.g. 10
	SupertrendMult   float64 // e.g. 3
	VolumeLookback   int     // e.g. 20
}

// DefaultConfig returns the standard scalping parameters.
func DefaultConfig() Config {
	return Config{
		EMAFastPeriod:    9,
		EMASlowPeriod:    21,
		RSIPeriod:        14,
		SupertrendPeriod: 10,
		SupertrendMult:   3,
		VolumeLookback:   20,
	}
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.EMAFastPeriod <= 0 || c.EMASlowPeriod <= 0 || c.RSIPeriod <= 0 ||
		c.SupertrendPeriod <= 0 || c.VolumeLookback <= 0 {
		return fmt.Errorf("indicator periods must be positive: %w", ports.ErrConfigurationError)
	}
	if c.EMAFastPeriod >= c.EMASlowPeriod {
		return fmt.Errorf("fast EMA period must be less than slow EMA period: %w", ports.ErrConfigurationError)
	}
	if c.SupertrendMult <= 0 {
		return fmt.Errorf("supertrend multiplier must be positive: %w", ports.ErrConfigurationError)
	}
	return nil
}

// WarmupCandles returns the number of candles that must be observed before
// the series produces snapshots.
func (c Config) WarmupCandles() int {
	warmup := c.EMASlowPeriod
	if c.RSIPeriod > warmup {
		warmup = c.RSIPeriod
	}
	if c.SupertrendPeriod > warmup {
		warmup = c.SupertrendPeriod
	}
	return warmup
}

// Series maintains the running indicator state for one symbol. Each new
// candle updates every indicator in O(1); history is never rescanned.
type Series struct {
	cfg  Config
	seen int

	vwap       *VWAP
	emaFast    *EMA
	emaSlow    *EMA
	rsi        *RSI
	supertrend *Supertrend
	volRatio   *VolumeRatio
	atr        *ATR
}

// NewSeries creates a fresh series for one symbol.
func NewSeries(cfg Config) (*Series, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Series{
		cfg:        cfg,
		vwap:       NewVWAP(),
		emaFast:    NewEMA(cfg.EMAFastPeriod),
		emaSlow:    NewEMA(cfg.EMASlowPeriod),
		rsi:        NewRSI(cfg.RSIPeriod),
		supertrend: NewSupertrend(cfg.SupertrendPeriod, cfg.SupertrendMult),
		volRatio:   NewVolumeRatio(cfg.VolumeLookback),
		atr:        NewATR(cfg.RSIPeriod),
	}, nil
}

// Update folds the next candle into the series. It returns
// ports.ErrInsufficientData until the warm-up window has been observed.
func (s *Series) Update(c *domain.Candle) (*domain.IndicatorSnapshot, error) {
	s.seen++

	vwap := s.vwap.Update(c)
	emaFast := s.emaFast.Update(c.Close)
	emaSlow := s.emaSlow.Update(c.Close)
	rsi := s.rsi.Update(c.Close)
	st, stDir := s.supertrend.Update(c)
	volRatio := s.volRatio.Update(c.Volume)
	atr := s.atr.Update(c)

	if s.seen < s.cfg.WarmupCandles() {
		return nil, fmt.Errorf("%d of %d warm-up candles for %s: %w",
			s.seen, s.cfg.WarmupCandles(), c.Symbol, ports.ErrInsufficientData)
	}

	return &domain.IndicatorSnapshot{
		VWAP:          vwap,
		EMAFast:       emaFast,
		EMASlow:       emaSlow,
		RSI:           rsi,
		Supertrend:    st,
		SupertrendDir: stDir,
		VolumeRatio:   volRatio,
		ATR:           atr,
	}, nil
}

// Seen returns the number of candles observed so far.
func (s *Series) Seen() int { return s.seen }
