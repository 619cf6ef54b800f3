package gpio

// quadTable maps (previous AB << 2 | current AB) to a step of -1, 0 or +1.
// Invalid transitions (both lines changed) count as 0.
var quadTable = [16]int8{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// Quadrature decodes A/B encoder levels into detents.
// Not safe for concurrent use; owned by one event handler.
type Quadrature struct {
	state uint8
	acc   int
	steps int
}

// NewQuadrature creates a decoder that reports one detent every
// stepsPerDetent valid transitions. Both lines start high (pull-up rest).
func NewQuadrature(stepsPerDetent int) *Quadrature {
	if stepsPerDetent < 1 {
		stepsPerDetent = 1
	}
	return &Quadrature{state: 0b11, steps: stepsPerDetent}
}

// Update feeds the current line levels and returns +1, -1 or 0 detents.
func (q *Quadrature) Update(a, b bool) int32 {
	var cur uint8
	if a {
		cur |= 0b10
	}
	if b {
		cur |= 0b01
	}
	q.acc += int(quadTable[q.state<<2|cur])
	q.state = cur

	switch {
	case q.acc >= q.steps:
		q.acc -= q.steps
		return 1
	case q.acc <= -q.steps:
		q.acc += q.steps
		return -1
	}
	return 0
}
