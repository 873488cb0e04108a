package insight

import "math"

// LambdaState classifies the trajectory of the tension signal across cycles.
type LambdaState string

const (
	LambdaConvergent LambdaState = "convergent"
	LambdaRecursive  LambdaState = "recursive"
	LambdaDivergent  LambdaState = "divergent"
	LambdaChaotic    LambdaState = "chaotic"
)

// Zone buckets the current tension value.
type Zone string

const (
	ZoneSafe    Zone = "safe"
	ZoneTransit Zone = "transit"
	ZoneRisk    Zone = "risk"
	ZoneDanger  Zone = "danger"
)

// MemoryAction hints what the surrounding application should persist as a
// durable exemplar or hard case.
type MemoryAction string

const (
	MemoryNone     MemoryAction = "none"
	MemoryHard     MemoryAction = "record_hard"
	MemoryExemplar MemoryAction = "record_exemplar"
)

// Zone thresholds over tension.
const (
	zoneSafeMax    = 0.40
	zoneTransitMax = 0.60
	zoneRiskMax    = 0.85
)

// Memory thresholds.
const (
	memoryHardMin     = 0.60
	memoryExemplarMax = 0.35
)

const (
	tensionHistorySize = 5
	progressionFloor   = 0.05
	lambdaEpsilon      = 0.05
	chaoticJump        = 0.25
	reversalGain       = 0.05
)

// ControllerConfig holds the tunable constants of the depth controller.
type ControllerConfig struct {
	// Theta bounds the coupling weight to [-Theta, Theta].
	Theta float64
	// Omega is the progression exponent in the coupling term.
	Omega float64
	// Gain scales tanh(coupling) in the alpha blend weight.
	Gain float64
	// AnchorHysteresis is the minimum anchor delta magnitude that flips the
	// reversal sign.
	AnchorHysteresis float64
}

// DefaultControllerConfig returns the stock controller constants.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Theta:            1.0,
		Omega:            0.5,
		Gain:             0.15,
		AnchorHysteresis: 0.3,
	}
}

// Controller is the nonlinear depth controller for one synthesis run. Its
// state is owned by that run alone: construct one per run, mutate it only
// through Update, and never share it across runs.
type Controller struct {
	cfg       ControllerConfig
	maxCycles int

	cycle       int
	history     []float64
	prevTension float64
	hasPrev     bool
	prevMean    float64
	coupling    float64
	anchorSign  float64
}

// NewController creates a controller bounded by maxCycles deepening cycles.
func NewController(cfg ControllerConfig, maxCycles int) *Controller {
	if cfg.Theta <= 0 {
		cfg = DefaultControllerConfig()
	}
	return &Controller{
		cfg:        cfg,
		maxCycles:  maxCycles,
		history:    make([]float64, 0, tensionHistorySize),
		anchorSign: 1,
	}
}

// Assessment is the controller's output for one cycle.
type Assessment struct {
	Cycle         int
	Lambda        LambdaState
	Zone          Zone
	Memory        MemoryAction
	Alpha         float64
	Coupling      float64
	Progression   float64
	BridgeAllowed bool
	ShouldDeepen  bool
}

// Update consumes the cycle's tension (and an optional anchor delta, zero
// meaning no flip input) and advances the controller state. Malformed tension
// is treated as maximal: the caller should route signals through TensionOrMax.
func (c *Controller) Update(tension, anchorDelta float64) Assessment {
	if math.IsNaN(tension) {
		tension = 1
	}
	tension = clamp01(tension)

	c.cycle++

	delta := 0.0
	if c.hasPrev {
		delta = tension - c.prevTension
	}

	c.history = append(c.history, tension)
	if len(c.history) > tensionHistorySize {
		c.history = c.history[1:]
	}
	mean := meanOf(c.history)
	resonanceDelta := 0.0
	if c.hasPrev {
		resonanceDelta = mean - c.prevMean
	}

	lambda := classifyLambda(c.hasPrev, delta, resonanceDelta)

	// Progression counts only decreases in tension; the floor keeps the
	// coupling term alive on the first step.
	progression := progressionFloor
	if c.hasPrev {
		progression = math.Max(progressionFloor, c.prevTension-tension)
	}

	// Reversal flips sign only past the anchor hysteresis threshold.
	if math.Abs(anchorDelta) > c.cfg.AnchorHysteresis {
		c.anchorSign = -c.anchorSign
	}
	reversal := c.anchorSign * reversalGain

	coupling := tension*math.Pow(progression, c.cfg.Omega) + reversal
	coupling = clampAbs(coupling, c.cfg.Theta)

	alpha := 0.5 + c.cfg.Gain*math.Tanh(coupling)
	if alpha < 0.35 {
		alpha = 0.35
	}
	if alpha > 0.65 {
		alpha = 0.65
	}

	// Bridge guard: strict tension decrease and bounded coupling, and never
	// once the cycle budget is exhausted.
	bridgeAllowed := c.hasPrev &&
		tension < c.prevTension &&
		coupling < 0.5*c.cfg.Theta &&
		c.cycle < c.maxCycles

	// Deepening is gated separately from bridging: another retrieval cycle
	// is warranted while cycle budget remains and the tension has not
	// settled into the safe zone. The first cycle can therefore deepen even
	// though bridging still waits for a prior tension value; the caller's
	// cost/benefit gate prices each extra cycle.
	shouldDeepen := c.cycle < c.maxCycles && classifyZone(tension) != ZoneSafe

	assessment := Assessment{
		Cycle:         c.cycle,
		Lambda:        lambda,
		Zone:          classifyZone(tension),
		Memory:        classifyMemory(tension),
		Alpha:         alpha,
		Coupling:      coupling,
		Progression:   progression,
		BridgeAllowed: bridgeAllowed,
		ShouldDeepen:  shouldDeepen,
	}

	c.prevTension = tension
	c.prevMean = mean
	c.hasPrev = true
	c.coupling = coupling

	return assessment
}

// Cycle returns the number of updates consumed so far.
func (c *Controller) Cycle() int {
	return c.cycle
}

func classifyLambda(hasPrev bool, delta, resonanceDelta float64) LambdaState {
	if !hasPrev {
		return LambdaDivergent
	}
	switch {
	case delta > chaoticJump:
		return LambdaChaotic
	case delta < -lambdaEpsilon && resonanceDelta <= lambdaEpsilon:
		return LambdaConvergent
	case math.Abs(delta) <= lambdaEpsilon && math.Abs(resonanceDelta) <= lambdaEpsilon:
		return LambdaRecursive
	default:
		return LambdaDivergent
	}
}

func classifyZone(tension float64) Zone {
	switch {
	case tension < zoneSafeMax:
		return ZoneSafe
	case tension < zoneTransitMax:
		return ZoneTransit
	case tension < zoneRiskMax:
		return ZoneRisk
	default:
		return ZoneDanger
	}
}

func classifyMemory(tension float64) MemoryAction {
	switch {
	case tension > memoryHardMin:
		return MemoryHard
	case tension < memoryExemplarMax:
		return MemoryExemplar
	default:
		return MemoryNone
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clampAbs(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}
