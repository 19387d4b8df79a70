package sim

import (
	"time"

	"airnode-go/platform/fb"
	"airnode-go/services/calib"
	"airnode-go/services/config"
	"airnode-go/services/node"
	"airnode-go/services/retained"
	"airnode-go/types"
)

// Board is a complete simulated node. Sleep advances virtual time to the
// next wake source instead of halting, so a harness boots it in a loop.
type Board struct {
	Clock    *Clock
	Sensor   *SCD41
	Panel    *fb.Panel
	Battery  *Battery
	USB      *USB
	Radio    *Radio
	Retained *retained.MemStore
	Calib    *calib.MemStore

	Node *node.Node

	resumed bool
	edge    bool

	// Wakes records the cause of every boot.
	Wakes []types.WakeCause
}

// NewBoard builds a board for cfg starting at Epoch with a cell at cellMv.
func NewBoard(cfg config.Config, cellMv float64, plugs ...Span) (*Board, error) {
	clock := NewClock(Epoch)
	usb := NewUSB(clock, plugs...)
	b := &Board{
		Clock:    clock,
		Sensor:   NewSCD41(clock, IndoorDay),
		Panel:    fb.New(cfg.Display.Width, cfg.Display.Height),
		Battery:  NewBattery(clock, usb, cellMv, cfg.Battery.DividerMilli),
		USB:      usb,
		Radio:    NewRadio(clock),
		Retained: &retained.MemStore{},
		Calib:    calib.NewMemStore(types.SensorConfig{}),
	}
	n, err := node.Assemble(cfg, node.Parts{
		I2C:      b.Sensor,
		Panel:    b.Panel,
		Radio:    b.Radio,
		Battery:  b.Battery,
		USB:      b.USB,
		Clock:    clock,
		Retained: b.Retained,
		Calib:    b.Calib,
		Sleeper:  b,
		Wait:     clock.Sleep,
	})
	if err != nil {
		return nil, err
	}
	b.Node = n
	return b, nil
}

// Wake samples the wake sources as the boot ROM would.
func (b *Board) Wake() types.Wake {
	return b.Node.Wake(b.resumed, b.edge)
}

// Sleep implements cycle.Sleeper. It returns at the wake instant.
func (b *Board) Sleep(plan types.SleepPlan) {
	now := b.Clock.Now()
	deadline := now.Add(plan.Duration)
	b.edge = false
	if plan.EdgeWake {
		if t, ok := b.USB.nextEdge(now, plan.EdgeLevel == types.High); ok && t.Before(deadline) {
			deadline, b.edge = t, true
		}
	}
	b.Clock.Sleep(deadline.Sub(now))
	b.Panel.LoseRAM()
	b.resumed = true
	lg.Debugf("slept %v edge=%v", deadline.Sub(now), b.edge)
}

// Boot runs one power-on of the node.
func (b *Board) Boot() (types.PersistedState, types.SleepPlan) {
	w := b.Wake()
	b.Wakes = append(b.Wakes, w.Cause)
	return b.Node.Boot(w)
}

// Run boots n times and returns the last retained state.
func (b *Board) Run(n int) types.PersistedState {
	var st types.PersistedState
	for i := 0; i < n; i++ {
		st, _ = b.Boot()
	}
	return st
}

// PowerCycle removes power: retained memory and the sleep context are lost.
func (b *Board) PowerCycle() {
	b.Retained.PowerLoss()
	b.Panel.LoseRAM()
	b.resumed, b.edge = false, false
}

// Recalibrate runs forced recalibration against targetPpm and restarts the
// board, so the next Boot is cold and loads the new calibration.
func (b *Board) Recalibrate(targetPpm uint16) (int16, error) {
	defer b.PowerCycle()
	return b.Node.Recalibrate(targetPpm)
}

// Elapsed is the virtual time since the board was built.
func (b *Board) Elapsed() time.Duration { return b.Clock.Since(Epoch) }
