package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2cm/ads1115"
	"github.com/mklimuk/i2cm/cmd/i2cm/console"
	"github.com/mklimuk/i2cm/poll"
)

var adcFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML settings file",
	},
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Value:   "mcp2221",
		Usage:   "bus adapter: mcp2221, generic, nanopi or bitbang",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Value:   "/dev/i2c-1",
	},
	&cli.StringFlag{
		Name:  "address",
		Value: "gnd",
		Usage: "ADDR pin wiring: gnd, vdd, sda or scl",
	},
	&cli.IntFlag{
		Name:  "channel",
		Value: 0,
		Usage: "single-ended input 0..3",
	},
	&cli.StringFlag{
		Name:  "gain",
		Value: "2.048",
		Usage: "full-scale range in volts",
	},
	&cli.IntFlag{
		Name:  "rate",
		Value: 128,
		Usage: "data rate in samples per second",
	},
	&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
}

var adcCmd = cli.Command{
	Name: "adc",
	Subcommands: []*cli.Command{
		&adcReadCmd,
		&adcWatchCmd,
		&adcConfigCmd,
	},
}

// loadSettings merges the optional settings file with flag overrides.
func loadSettings(c *cli.Context) (poll.Settings, error) {
	settings := poll.DefaultSettings()
	if path := c.String("config"); path != "" {
		var err error
		settings, err = poll.LoadSettings(path)
		if err != nil {
			return settings, err
		}
	}
	if c.IsSet("adapter") || c.String("config") == "" {
		settings.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		settings.Device = c.String("device")
	}
	if c.IsSet("address") {
		settings.Address = c.String("address")
	}
	if c.IsSet("channel") {
		settings.Channel = c.Int("channel")
	}
	if c.IsSet("gain") {
		settings.Gain = c.String("gain")
	}
	if c.IsSet("rate") {
		settings.DataRate = c.Int("rate")
	}
	if c.IsSet("interval") {
		settings.Interval = poll.Duration(c.Duration("interval"))
	}
	return settings, nil
}

func openDevice(settings poll.Settings) (*ads1115.Device, func() error, error) {
	master, closer, err := openMaster(settings)
	if err != nil {
		return nil, nil, err
	}
	addr, err := settings.DeviceAddress()
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	dev, err := ads1115.New(master, addr)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return dev, closer, nil
}

var adcReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags:   adcFlags,
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		settings, err := loadSettings(c)
		if err != nil {
			return console.Exit(1, "settings error: %s", console.Red(err))
		}
		cfg, err := settings.ADCConfig()
		if err != nil {
			return console.Exit(1, "settings error: %s", console.Red(err))
		}
		dev, closer, err := openDevice(settings)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer func() {
			if err := closer(); err != nil {
				console.Errorf("error closing adapter: %s", console.Red(err))
			}
		}()
		// trigger one conversion and give it a full cycle to finish
		cfg.Mode = ads1115.ModeSingleShot
		cfg.TriggerSingleShot = true
		if err := dev.WriteConfig(ctx, cfg); err != nil {
			return console.Exit(1, "configuration write error: %s", console.Red(err))
		}
		time.Sleep(conversionTime(settings.DataRate))
		sample, err := dev.ReadConversion(ctx)
		if err != nil {
			return console.Exit(1, "conversion read error: %s", console.Red(err))
		}
		console.PInfof(console.PictoChart, "raw %s voltage %s", console.White(sample), console.White(cfg.Voltage(sample)))
		return nil
	},
}

var adcWatchCmd = cli.Command{
	Name: "watch",
	Flags: append([]cli.Flag{
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Value:   100 * time.Millisecond,
		},
	}, adcFlags...),
	Action: func(c *cli.Context) error {
		settings, err := loadSettings(c)
		if err != nil {
			return console.Exit(1, "settings error: %s", console.Red(err))
		}
		cfg, err := settings.ADCConfig()
		if err != nil {
			return console.Exit(1, "settings error: %s", console.Red(err))
		}
		master, closer, err := openMaster(settings)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer func() {
			if err := closer(); err != nil {
				console.Errorf("error closing adapter: %s", console.Red(err))
			}
		}()
		addr, err := settings.DeviceAddress()
		if err != nil {
			return console.Exit(1, "settings error: %s", console.Red(err))
		}
		dev, err := ads1115.New(master, addr)
		if err != nil {
			return console.Exit(1, "device error: %s", console.Red(err))
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = console.SetVerbose(ctx, c.Bool("verbose"))
		p := poll.New(master, dev,
			poll.WithConfig(cfg),
			poll.WithInterval(time.Duration(settings.Interval)),
			poll.WithSettleDelay(time.Duration(settings.SettleDelay)))
		err = p.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return console.Exit(1, "polling error: %s", console.Red(err))
		}
		console.PInfof(console.PictoStop, "polling stopped")
		return nil
	},
}

var adcConfigCmd = cli.Command{
	Name: "config",
	Subcommands: []*cli.Command{
		{
			Name:  "get",
			Flags: adcFlags,
			Action: func(c *cli.Context) error {
				ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
				settings, err := loadSettings(c)
				if err != nil {
					return console.Exit(1, "settings error: %s", console.Red(err))
				}
				dev, closer, err := openDevice(settings)
				if err != nil {
					return console.Exit(1, "adapter initialization error: %s", console.Red(err))
				}
				defer func() { _ = closer() }()
				cfg, err := dev.ReadConfig(ctx)
				if err != nil {
					return console.Exit(1, "configuration read error: %s", console.Red(err))
				}
				enc := yaml.NewEncoder(os.Stdout)
				err = enc.Encode(configView(cfg))
				if err != nil {
					return console.Exit(1, "encoding error: %s", console.Red(err))
				}
				return nil
			},
		},
		{
			Name:  "set",
			Flags: adcFlags,
			Action: func(c *cli.Context) error {
				ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
				settings, err := loadSettings(c)
				if err != nil {
					return console.Exit(1, "settings error: %s", console.Red(err))
				}
				cfg, err := settings.ADCConfig()
				if err != nil {
					return console.Exit(1, "settings error: %s", console.Red(err))
				}
				answer, err := console.YesOrNo("write config register?")
				if err != nil {
					return console.Exit(1, "prompt error: %s", console.Red(err))
				}
				if answer != console.Yes {
					console.Info("aborted")
					return nil
				}
				dev, closer, err := openDevice(settings)
				if err != nil {
					return console.Exit(1, "adapter initialization error: %s", console.Red(err))
				}
				defer func() { _ = closer() }()
				if err := dev.WriteConfig(ctx, cfg); err != nil {
					return console.Exit(1, "configuration write error: %s", console.Red(err))
				}
				console.PInfof(console.PictoPin, "config register set to %s", console.White(cfg.Uint16()))
				return nil
			},
		},
	},
}

// conversionTime returns one conversion cycle with margin for the data rate.
func conversionTime(sps int) time.Duration {
	if sps <= 0 {
		sps = 128
	}
	return time.Second/time.Duration(sps) + 10*time.Millisecond
}

type configYAML struct {
	FullScale  float64 `yaml:"full_scale_volts"`
	Mode       string  `yaml:"mode"`
	Register   string  `yaml:"register"`
	Comparator string  `yaml:"comparator"`
}

func configView(cfg ads1115.Config) configYAML {
	view := configYAML{
		FullScale:  cfg.Gain.FullScale(),
		Mode:       "continuous",
		Comparator: "traditional",
	}
	if cfg.Mode == ads1115.ModeSingleShot {
		view.Mode = "single-shot"
	}
	if cfg.ComparatorMode == ads1115.ComparatorWindow {
		view.Comparator = "window"
	}
	view.Register = fmt.Sprintf("0x%04x", cfg.Uint16())
	return view
}
