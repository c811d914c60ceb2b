// Package detect classifies which of the three traffic-light lamps is lit by
// comparing mean luma inside each lamp's sampling circle.
package detect

import "github.com/acap-vision/tld/internal/config"

// State is the detected light state for a single frame. States carry no
// history: every frame is classified from scratch.
type State int

const (
	StateUnknown State = iota
	StateRed
	StateYellow
	StateGreen
)

var stateNames = map[State]string{
	StateUnknown: "UNKNOWN",
	StateRed:     "RED",
	StateYellow:  "YELLOW",
	StateGreen:   "GREEN",
}

// String returns the wire name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Result is the outcome of classifying one frame. Means holds the raw mean
// luma per lamp in red, yellow, green order. ROIValid is false when the
// configured region did not fit the frame, in which case no sampling was
// performed and Means is all zero.
type Result struct {
	State    State
	Means    [3]float64
	ROIValid bool
}

// lamp enumeration order decides ties: with a strict greater-than comparison
// the earlier lamp keeps the running maximum.
var lampStates = [3]State{StateRed, StateYellow, StateGreen}

// Classify samples the three lamp circles on the frame's luma plane and
// returns the lamp with the strictly greatest mean brightness, provided that
// maximum exceeds the configured threshold. A region of interest that is
// empty or not fully inside the frame yields UNKNOWN without sampling.
func Classify(luma []byte, width, height int, cfg config.Settings) Result {
	if cfg.ROIWidth <= 0 || cfg.ROIHeight <= 0 ||
		cfg.ROIX < 0 || cfg.ROIY < 0 ||
		cfg.ROIX+cfg.ROIWidth > width ||
		cfg.ROIY+cfg.ROIHeight > height {
		return Result{State: StateUnknown}
	}

	centers := [3]struct{ x, y int }{
		{cfg.RedX, cfg.RedY},
		{cfg.YellowX, cfg.YellowY},
		{cfg.GreenX, cfg.GreenY},
	}

	res := Result{State: StateUnknown, ROIValid: true}
	maxMean := 0.0
	maxIdx := -1

	for i, c := range centers {
		mean := circleMean(luma, width, cfg, c.x, c.y)
		res.Means[i] = mean
		if mean > maxMean {
			maxMean = mean
			maxIdx = i
		}
	}

	if maxIdx >= 0 && maxMean > float64(cfg.BrightnessThreshold) {
		res.State = lampStates[maxIdx]
	}
	return res
}

// circleMean averages the luma of all pixels within the lamp radius of
// (cx, cy), clipped to the ROI. A circle with no pixels inside the ROI
// contributes a mean of zero, not an error.
func circleMean(luma []byte, width int, cfg config.Settings, cx, cy int) float64 {
	r := cfg.LampRadius
	var sum, count int64

	for dy := -r; dy <= r; dy++ {
		py := cy + dy
		if py < 0 || py >= cfg.ROIHeight {
			continue
		}
		row := (cfg.ROIY + py) * width
		for dx := -r; dx <= r; dx++ {
			px := cx + dx
			if px < 0 || px >= cfg.ROIWidth {
				continue
			}
			if dx*dx+dy*dy > r*r {
				continue
			}
			sum += int64(luma[row+cfg.ROIX+px])
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}
