package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/i2cm"
	"github.com/mklimuk/i2cm/ads1115"
)

// Converter is the slice of the ADS1115 driver the polling task consumes.
type Converter interface {
	WriteConfig(ctx context.Context, cfg ads1115.Config) error
	ReadConversion(ctx context.Context) (int16, error)
}

type Opts struct {
	// Interval between conversion reads.
	Interval time.Duration
	// SettleDelay lets the device finish powering up before the first
	// transaction.
	SettleDelay time.Duration
	// Config is written to the device once before the loop starts.
	Config ads1115.Config
	Logger *slog.Logger
	// OnSample is invoked for every successful read, after logging.
	OnSample func(sample int16)
}

type Opt func(*Opts)

func WithInterval(interval time.Duration) Opt {
	return func(o *Opts) {
		o.Interval = interval
	}
}

func WithSettleDelay(delay time.Duration) Opt {
	return func(o *Opts) {
		o.SettleDelay = delay
	}
}

func WithConfig(cfg ads1115.Config) Opt {
	return func(o *Opts) {
		o.Config = cfg
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

func WithOnSample(fn func(sample int16)) Opt {
	return func(o *Opts) {
		o.OnSample = fn
	}
}

// Poller periodically reads the conversion register of a single device and
// reports the sample. Every failure is handled the same way: log that the
// device is not responding and retry on the next tick. Run stops only when
// its context is cancelled.
type Poller struct {
	master i2cm.Master
	dev    Converter
	config Opts
}

// New creates a poller over the given master and device. The master is only
// consulted for one-time initialization when it implements i2cm.Initializer;
// it may be nil when the Converter is not transaction-backed (mocks).
func New(master i2cm.Master, dev Converter, opts ...Opt) *Poller {
	cfg := ads1115.DefaultConfig()
	cfg.Mode = ads1115.ModeContinuous
	config := Opts{
		Interval:    100 * time.Millisecond,
		SettleDelay: 100 * time.Millisecond,
		Config:      cfg,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Poller{master: master, dev: dev, config: config}
}

// Run performs one-time device initialization (settle delay, adapter probe,
// configuration write) and then loops reading the conversion register until
// ctx is cancelled, returning ctx.Err(). Initialization failures are
// returned immediately and no transaction is submitted afterwards.
func (p *Poller) Run(ctx context.Context) error {
	if err := wait(ctx, p.config.SettleDelay); err != nil {
		return err
	}
	if ini, ok := p.master.(i2cm.Initializer); ok {
		if err := ini.Init(); err != nil {
			return fmt.Errorf("adapter initialization failed: %w", err)
		}
	}
	if err := p.dev.WriteConfig(ctx, p.config.Config); err != nil {
		return fmt.Errorf("could not write initial configuration: %w", err)
	}
	log := p.config.Logger
	if log == nil {
		log = slog.Default()
	}
	for {
		sample, err := p.dev.ReadConversion(ctx)
		if err != nil {
			log.Warn("device not responding", "error", err)
		} else {
			log.Info("sample", "raw", sample, "voltage", p.config.Config.Voltage(sample))
			if p.config.OnSample != nil {
				p.config.OnSample(sample)
			}
		}
		if err := wait(ctx, p.config.Interval); err != nil {
			return err
		}
	}
}

// wait suspends cooperatively for the given duration or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
