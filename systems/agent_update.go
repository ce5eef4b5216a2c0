package systems

// KernelOptions are the startup-only kernel constants.
type KernelOptions struct {
	DepositAmount    float32 // intensity added at the agent's cell each frame
	MaxIntensity     float32 // per-cell ceiling
	SensorSpread     float32 // sensor angle = TurningSpeed * SensorSpread
	TieBreakSeed     uint32  // seeds the equal-sides steering choice
	InPlaceDiffusion bool    // diffuse in the live buffer instead of double-buffering
}

// DefaultKernelOptions returns the options used when none are configured.
func DefaultKernelOptions() KernelOptions {
	return KernelOptions{
		DepositAmount: 0.5,
		MaxIntensity:  1,
		SensorSpread:  1,
		TieBreakSeed:  0x9E3779B1,
	}
}

// UpdateAgents advances agents[start:end] by one frame: sense the trail at
// three points ahead, steer, move with wrap-around, deposit. It returns how
// many agents crossed a grid edge.
//
// The scheduler runs this on disjoint ranges concurrently. Sensing and
// depositing share tm without locks: an agent may read a neighbor's deposit
// from this frame or miss it, and two deposits on one cell may lose one.
// Both are accepted; the pattern is a statistical field effect.
func UpdateAgents(agents []Agent, start, end int, tm *TrailMap, p Params, opt KernelOptions, frame uint64) int {
	w, h := float32(tm.W), float32(tm.H)
	sensorAngle := p.TurningSpeed * opt.SensorSpread
	wraps := 0

	for i := start; i < end; i++ {
		a := &agents[i]

		left := sense(tm, a.X, a.Y, a.Heading-sensorAngle, p.SensorDistance, p.SensorSize)
		forward := sense(tm, a.X, a.Y, a.Heading, p.SensorDistance, p.SensorSize)
		right := sense(tm, a.X, a.Y, a.Heading+sensorAngle, p.SensorDistance, p.SensorSize)

		a.Heading = steer(a.Heading, left, forward, right, p.TurningSpeed, opt.TieBreakSeed, i, frame)

		nx := a.X + p.MoveSpeed*fastCos(a.Heading)
		ny := a.Y + p.MoveSpeed*fastSin(a.Heading)
		if nx < 0 || nx >= w || ny < 0 || ny >= h {
			wraps++
		}
		a.X = wrapCoord(nx, w)
		a.Y = wrapCoord(ny, h)

		tm.Deposit(int(a.X), int(a.Y), opt.DepositAmount)
	}
	return wraps
}

// sense sums the trail window around the point dist cells from (x, y) along angle.
func sense(tm *TrailMap, x, y, angle, dist float32, size int) float32 {
	sx := wrapCoord(x+dist*fastCos(angle), float32(tm.W))
	sy := wrapCoord(y+dist*fastSin(angle), float32(tm.H))
	return tm.SampleWindow(int(sx), int(sy), size)
}

// steer returns the new heading for the three sensor readings.
//
//	forward strictly highest  -> keep heading
//	all three equal           -> keep heading
//	left > right              -> turn left (-turn)
//	right > left              -> turn right (+turn)
//	left == right > forward   -> turn by tieBreakSign
func steer(heading, left, forward, right, turn float32, seed uint32, index int, frame uint64) float32 {
	switch {
	case forward > left && forward > right:
		return heading
	case left == forward && forward == right:
		return heading
	case left > right:
		heading -= turn
	case right > left:
		heading += turn
	default:
		heading += turn * tieBreakSign(seed, index, frame)
	}
	return normalizeAngle(heading)
}

// tieBreakSign hashes (seed, agent, frame) to -1 or +1. The same inputs
// always give the same direction, neighbouring agents and frames decorrelate.
func tieBreakSign(seed uint32, index int, frame uint64) float32 {
	h := seed ^ uint32(index)*0x9E3779B1 ^ uint32(frame)*0x85EBCA77 ^ uint32(frame>>32)
	h ^= h >> 16
	h *= 0x7FEB352D
	h ^= h >> 15
	h *= 0x846CA68B
	h ^= h >> 16
	if h&1 == 0 {
		return -1
	}
	return 1
}
