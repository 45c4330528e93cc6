package reverb

// CombFilter implements a damped feedback comb filter
type CombFilter struct {
	buffer      []float32
	bufferIdx   int
	feedback    float32
	filterstore float32
	damp1       float32
	damp2       float32
}

// NewCombFilter creates a new comb filter with the given delay in samples
func NewCombFilter(delaySamples int) *CombFilter {
	if delaySamples < 1 {
		delaySamples = 1
	}
	return &CombFilter{
		buffer:   make([]float32, delaySamples),
		feedback: 0.5,
		damp1:    0.5,
		damp2:    0.5,
	}
}

// SetFeedback sets the feedback amount (0-1)
func (c *CombFilter) SetFeedback(feedback float64) {
	c.feedback = float32(clamp01(feedback))
}

// SetDamping sets the lowpass amount in the feedback path (0-1)
func (c *CombFilter) SetDamping(damping float64) {
	c.damp1 = float32(damping)
	c.damp2 = 1 - c.damp1
}

// Process processes a single sample through the comb filter
func (c *CombFilter) Process(input float32) float32 {
	output := c.buffer[c.bufferIdx]

	c.filterstore = output*c.damp2 + c.filterstore*c.damp1
	c.buffer[c.bufferIdx] = input + c.feedback*c.filterstore

	c.bufferIdx++
	if c.bufferIdx >= len(c.buffer) {
		c.bufferIdx = 0
	}
	return output
}

// Reset clears the comb filter state
func (c *CombFilter) Reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.bufferIdx = 0
	c.filterstore = 0
}

// AllPassFilter implements a Schroeder all-pass diffuser
type AllPassFilter struct {
	buffer    []float32
	bufferIdx int
	feedback  float32
}

// NewAllPassFilter creates a new all-pass filter with the given delay in samples
func NewAllPassFilter(delaySamples int) *AllPassFilter {
	if delaySamples < 1 {
		delaySamples = 1
	}
	return &AllPassFilter{
		buffer:   make([]float32, delaySamples),
		feedback: 0.5,
	}
}

// SetFeedback sets the feedback amount (typically around 0.5)
func (a *AllPassFilter) SetFeedback(feedback float64) {
	a.feedback = float32(feedback)
}

// Process processes a single sample through the all-pass filter
func (a *AllPassFilter) Process(input float32) float32 {
	bufout := a.buffer[a.bufferIdx]

	// y[n] = -x[n] + x[n-D] + g*y[n-D]
	output := -input + bufout
	a.buffer[a.bufferIdx] = input + a.feedback*bufout

	a.bufferIdx++
	if a.bufferIdx >= len(a.buffer) {
		a.bufferIdx = 0
	}
	return output
}

// Reset clears the all-pass filter state
func (a *AllPassFilter) Reset() {
	for i := range a.buffer {
		a.buffer[i] = 0
	}
	a.bufferIdx = 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
