package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Parameter is one host-automatable value. The normalized value is stored
// atomically so the audio thread can read it without locks.
type Parameter struct {
	ID           uint32
	Name         string
	ShortName    string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64 // normalized
	StepCount    int32
	Flags        uint32
	UnitID       int32

	value atomic.Uint64 // float64 bits

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// Host flags
const (
	CanAutomate uint32 = 1 << 0
	IsList      uint32 = 1 << 3
)

// GetValue returns the current normalized value (0-1)
func (p *Parameter) GetValue() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets the normalized value, clamped to 0-1
func (p *Parameter) SetValue(value float64) {
	if value < 0 || math.IsNaN(value) {
		value = 0
	} else if value > 1 {
		value = 1
	}
	p.value.Store(math.Float64bits(value))
}

// GetPlainValue returns the current value in the parameter's own range
func (p *Parameter) GetPlainValue() float64 {
	return p.Denormalize(p.GetValue())
}

// SetPlainValue stores a value given in the parameter's own range
func (p *Parameter) SetPlainValue(plain float64) {
	p.SetValue(p.Normalize(plain))
}

// Bool interprets the parameter as a toggle
func (p *Parameter) Bool() bool {
	return p.GetValue() >= 0.5
}

// Index returns the selected step of a discrete parameter
func (p *Parameter) Index() int {
	if p.StepCount <= 0 {
		return 0
	}
	return int(math.Round(p.GetValue() * float64(p.StepCount)))
}

// Reset restores the default value
func (p *Parameter) Reset() {
	p.SetValue(p.DefaultValue)
}

// SetFormatter sets custom value formatting
func (p *Parameter) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue returns formatted parameter value
func (p *Parameter) FormatValue(normalized float64) string {
	plain := p.Denormalize(normalized)
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}
	return fmt.Sprintf("%.2f", plain)
}

// String formats the current value
func (p *Parameter) String() string {
	return p.FormatValue(p.GetValue())
}

// ParseValue parses string to normalized value
func (p *Parameter) ParseValue(str string) (float64, error) {
	parse := p.parseFunc
	if parse == nil {
		parse = func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	}
	plain, err := parse(str)
	if err != nil {
		return 0, err
	}
	return p.Normalize(plain), nil
}

// Normalize converts plain value to normalized (0-1)
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	normalized := (plain - p.Min) / (p.Max - p.Min)
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

// Denormalize converts normalized (0-1) to plain value. Discrete
// parameters snap to their nearest step.
func (p *Parameter) Denormalize(normalized float64) float64 {
	if p.StepCount > 0 {
		normalized = math.Round(normalized*float64(p.StepCount)) / float64(p.StepCount)
	}
	return p.Min + normalized*(p.Max-p.Min)
}
