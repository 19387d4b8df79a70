//go:build linux

// airnode runs the node on a Linux board until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/d2r2/go-logger"

	"airnode-go/platform/linux"
	"airnode-go/services/config"
)

var lg = logger.NewPackageLogger("main", logger.InfoLevel)

func main() {
	defer logger.FinalizeLogger()

	cfgPath := flag.String("config", "/etc/airnode/config.yaml", "YAML config file")
	var opts linux.Options
	flag.StringVar(&opts.I2CBus, "i2c", "", "I2C bus name (default: first bus)")
	flag.StringVar(&opts.USBPin, "usb-pin", "", "GPIO reading USB power, e.g. GPIO17")
	flag.StringVar(&opts.ADCDir, "adc", "", "IIO device directory for the battery divider")
	flag.IntVar(&opts.ADCChan, "adc-channel", 0, "IIO voltage channel")
	flag.StringVar(&opts.StateDir, "state", "/var/lib/airnode", "directory for retained state and calibration")
	flag.StringVar(&opts.PNGPath, "png", "", "write the panel image here before each sleep")
	flag.BoolVar(&opts.NoRadio, "no-radio", false, "do not advertise over Bluetooth")
	frc := flag.Uint("frc", 0, "run forced recalibration to this CO2 ppm and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.Logging.ApplyLogLevel()

	b, err := linux.Open(cfg, opts)
	if err != nil {
		lg.Errorf("open board: %v", err)
		os.Exit(1)
	}
	defer b.Close()

	if *frc > 0 {
		corr, err := b.Node.Recalibrate(uint16(*frc))
		if err != nil {
			lg.Errorf("frc: %v", err)
			os.Exit(1)
		}
		lg.Infof("frc to %d ppm: correction %+d ppm", *frc, corr)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	for ctx.Err() == nil {
		b.Boot()
	}
	lg.Infof("stopped")
}
