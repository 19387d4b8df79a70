package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airnode-go/platform/fb"
	"airnode-go/platform/sim"
	"airnode-go/services/config"
	"airnode-go/services/node"
	"airnode-go/services/retained"
	"airnode-go/types"
)

func TestAssembleFullBoard(t *testing.T) {
	clock := sim.NewClock(sim.Epoch)
	radio := sim.NewRadio(clock)
	n, err := node.Assemble(config.Default(), node.Parts{
		I2C:      sim.NewSCD41(clock, nil),
		Panel:    fb.New(400, 300),
		Radio:    radio,
		Retained: &retained.MemStore{},
		Wait:     clock.Sleep,
	})
	require.NoError(t, err)
	require.NotNil(t, n.Sensor)
	require.NotNil(t, n.Renderer)

	st, _ := n.Boot(types.Wake{Cause: types.WakeColdBoot})
	assert.False(t, st.Error)
	assert.Positive(t, st.CO2Ppm)
	assert.Len(t, radio.Frames, 1)
}

func TestAssembleWithoutSensor(t *testing.T) {
	n, err := node.Assemble(config.Default(), node.Parts{})
	require.NoError(t, err)
	assert.Nil(t, n.Sensor)

	st, plan := n.Boot(types.Wake{Cause: types.WakeColdBoot})
	assert.True(t, st.Error)
	assert.Equal(t, config.Default().Sleep.Battery, plan.Duration)
}

func TestAssembleRejectsSmallPanel(t *testing.T) {
	_, err := node.Assemble(config.Default(), node.Parts{Panel: fb.New(40, 30)})
	assert.Error(t, err)
}

func TestAssembleRadioDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Radio.Enabled = false
	clock := sim.NewClock(sim.Epoch)
	radio := sim.NewRadio(clock)
	n, err := node.Assemble(cfg, node.Parts{I2C: sim.NewSCD41(clock, nil), Radio: radio, Wait: clock.Sleep})
	require.NoError(t, err)

	n.Boot(types.Wake{Cause: types.WakeColdBoot})
	assert.Empty(t, radio.Frames)
}
