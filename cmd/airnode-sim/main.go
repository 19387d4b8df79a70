// airnode-sim boots a simulated node in virtual time and prints what each
// wake cycle did. The final panel image can be written as a PNG.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	logger "github.com/d2r2/go-logger"

	"airnode-go/platform/sim"
	"airnode-go/services/config"
	"airnode-go/services/telemetry"
)

var lg = logger.NewPackageLogger("main", logger.InfoLevel)

func main() {
	defer logger.FinalizeLogger()

	cfgPath := flag.String("config", "", "YAML config file (defaults to the board profile)")
	board := flag.String("board", config.DefaultBoard, "board profile when no config file is given")
	cycles := flag.Int("n", 20, "number of wake cycles")
	cellMv := flag.Float64("cell", 4000, "initial battery cell voltage in mV")
	usbAt := flag.Duration("usb-at", 0, "plug USB in after this much virtual time (0: never)")
	usbFor := flag.Duration("usb-for", 2*time.Minute, "how long USB stays plugged in")
	frc := flag.Uint("frc", 0, "run forced recalibration to this CO2 ppm after the first cycle")
	pngPath := flag.String("png", "", "write the final panel image to this file")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath, *board)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.Logging.ApplyLogLevel()

	var plugs []sim.Span
	if *usbAt > 0 {
		from := sim.Epoch.Add(*usbAt)
		plugs = append(plugs, sim.Span{From: from, To: from.Add(*usbFor)})
	}
	b, err := sim.NewBoard(cfg, *cellMv, plugs...)
	if err != nil {
		lg.Errorf("board: %v", err)
		os.Exit(1)
	}

	if *frc > 0 {
		// FRC restarts the node, so the first cycle below is a cold boot.
		corr, err := b.Recalibrate(uint16(*frc))
		if err != nil {
			lg.Errorf("frc: %v", err)
		} else {
			fmt.Printf("frc to %d ppm: correction %+d ppm\n", *frc, corr)
		}
	}

	for i := 0; i < *cycles; i++ {
		st, plan := b.Boot()
		fmt.Printf("%3d %-9s %s co2=%4d t=%s h=%s bat=%3d%% err=%-5v sleep=%v\n",
			i, b.Wakes[i], b.Clock.Now().Format("15:04:05"), st.CO2Ppm,
			centi(st.TemperatureCenti), centi(st.HumidityCenti), st.BatteryPercent, st.Error, plan.Duration)
	}

	if n := len(b.Radio.Frames); n > 0 {
		last := b.Radio.Frames[n-1]
		d, err := telemetry.Decode(last.Payload[:])
		fmt.Printf("last advert % x -> %+v %v\n", last.Payload[:], d, err)
	}
	fmt.Printf("panel: %d paints, %d full; sensor: %d full, %d fast; elapsed %v\n",
		b.Panel.Paints, b.Panel.FullPaints, b.Sensor.FullShots, b.Sensor.FastShots, b.Elapsed())

	if *pngPath != "" {
		if err := writePNG(b, *pngPath); err != nil {
			lg.Errorf("png: %v", err)
			os.Exit(1)
		}
	}
}

func loadConfig(path, board string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.ForBoard(board)
}

func writePNG(b *sim.Board, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := b.Panel.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func centi(v uint16) string { return fmt.Sprintf("%d.%02d", v/100, v%100) }
