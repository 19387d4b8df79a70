//go:build (rp2040 || rp2350) && cyw43439

package rp2

import (
	"airnode-go/platform/ble"
	"airnode-go/services/config"
	"airnode-go/services/telemetry"
)

func newRadio(cfg config.Config) telemetry.Advertiser {
	return ble.New(cfg.Radio.LocalName)
}
