//go:build (rp2040 || rp2350) && !cyw43439

package rp2

import (
	"airnode-go/services/config"
	"airnode-go/services/telemetry"
)

// Boards without the CYW43439 have no radio.
func newRadio(config.Config) telemetry.Advertiser { return nil }
