package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/acap-vision/tld/internal/config"
)

const (
	frameW = 200
	frameH = 200
)

// testSettings returns the geometry used across the end-to-end scenarios:
// ROI (0,0,100,100), lamps at (10,10), (50,50), (90,90), radius 5,
// threshold 80.
func testSettings() config.Settings {
	return config.Settings{
		ROIX: 0, ROIY: 0, ROIWidth: 100, ROIHeight: 100,
		RedX: 10, RedY: 10,
		YellowX: 50, YellowY: 50,
		GreenX: 90, GreenY: 90,
		LampRadius:          5,
		BrightnessThreshold: 80,
	}
}

// fillLamp paints a constant value into the lamp's sampling circle, clipped
// to the ROI, so the lamp's mean equals the value exactly.
func fillLamp(luma []byte, cfg config.Settings, cx, cy int, value byte) {
	r := cfg.LampRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			px, py := cx+dx, cy+dy
			if px < 0 || px >= cfg.ROIWidth || py < 0 || py >= cfg.ROIHeight {
				continue
			}
			luma[(cfg.ROIY+py)*frameW+cfg.ROIX+px] = value
		}
	}
}

func makeFrame(cfg config.Settings, red, yellow, green byte) []byte {
	luma := make([]byte, frameW*frameH)
	fillLamp(luma, cfg, cfg.RedX, cfg.RedY, red)
	fillLamp(luma, cfg, cfg.YellowX, cfg.YellowY, yellow)
	fillLamp(luma, cfg, cfg.GreenX, cfg.GreenY, green)
	return luma
}

func TestClassifyGreen(t *testing.T) {
	cfg := testSettings()
	res := Classify(makeFrame(cfg, 45, 30, 189), frameW, frameH, cfg)

	assert.True(t, res.ROIValid)
	assert.Equal(t, StateGreen, res.State)
	assert.InDelta(t, 45, res.Means[0], 0.01)
	assert.InDelta(t, 30, res.Means[1], 0.01)
	assert.InDelta(t, 189, res.Means[2], 0.01)
}

func TestClassifyRed(t *testing.T) {
	cfg := testSettings()
	res := Classify(makeFrame(cfg, 192, 41, 48), frameW, frameH, cfg)

	assert.True(t, res.ROIValid)
	assert.Equal(t, StateRed, res.State)
}

func TestClassifyBelowThreshold(t *testing.T) {
	cfg := testSettings()
	res := Classify(makeFrame(cfg, 45, 30, 79), frameW, frameH, cfg)

	assert.True(t, res.ROIValid)
	assert.Equal(t, StateUnknown, res.State)
	// Per-lamp means are still reported on the threshold path.
	assert.InDelta(t, 79, res.Means[2], 0.01)
}

func TestClassifyThresholdIsStrict(t *testing.T) {
	cfg := testSettings()
	res := Classify(makeFrame(cfg, 80, 0, 0), frameW, frameH, cfg)
	assert.Equal(t, StateUnknown, res.State)

	res = Classify(makeFrame(cfg, 81, 0, 0), frameW, frameH, cfg)
	assert.Equal(t, StateRed, res.State)
}

func TestClassifyTieGoesToFirstLamp(t *testing.T) {
	cfg := testSettings()

	res := Classify(makeFrame(cfg, 150, 150, 0), frameW, frameH, cfg)
	assert.Equal(t, StateRed, res.State)

	res = Classify(makeFrame(cfg, 0, 150, 150), frameW, frameH, cfg)
	assert.Equal(t, StateYellow, res.State)
}

func TestClassifyLampOutsideROIMeansZero(t *testing.T) {
	cfg := testSettings()
	cfg.GreenX, cfg.GreenY = 300, 300 // circle entirely outside the ROI

	luma := make([]byte, frameW*frameH)
	for i := range luma {
		luma[i] = 255
	}
	// Pixels outside the ROI stay at 255 everywhere, but the green lamp
	// samples nothing and must report zero, not an error.
	res := Classify(luma, frameW, frameH, cfg)

	assert.True(t, res.ROIValid)
	assert.Equal(t, 0.0, res.Means[2])
	assert.Equal(t, StateRed, res.State) // red and yellow tie at 255
}

func TestClassifyInvalidROI(t *testing.T) {
	bright := make([]byte, frameW*frameH)
	for i := range bright {
		bright[i] = 255
	}

	cases := []struct {
		name string
		edit func(*config.Settings)
	}{
		{"zero width", func(c *config.Settings) { c.ROIWidth = 0 }},
		{"negative height", func(c *config.Settings) { c.ROIHeight = -5 }},
		{"negative origin", func(c *config.Settings) { c.ROIX = -1 }},
		{"exceeds width", func(c *config.Settings) { c.ROIX = 150 }},
		{"exceeds height", func(c *config.Settings) { c.ROIHeight = 300 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testSettings()
			tc.edit(&cfg)
			res := Classify(bright, frameW, frameH, cfg)

			assert.False(t, res.ROIValid)
			assert.Equal(t, StateUnknown, res.State)
			// No sampling happened at all.
			assert.Equal(t, [3]float64{}, res.Means)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "RED", StateRed.String())
	assert.Equal(t, "YELLOW", StateYellow.String())
	assert.Equal(t, "GREEN", StateGreen.String())
	assert.Equal(t, "UNKNOWN", StateUnknown.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
