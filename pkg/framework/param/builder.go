package param

import (
	"fmt"
	"math"
)

// Builder configures a Parameter before it is added to a Registry
type Builder struct {
	param *Parameter
}

// New starts an automatable 0-1 parameter
func New(id uint32, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:        id,
			Name:      name,
			ShortName: name,
			Max:       1,
			Flags:     CanAutomate,
		},
	}
}

func (b *Builder) ShortName(name string) *Builder {
	b.param.ShortName = name
	return b
}

func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default takes a plain value; call it after Range
func (b *Builder) Default(value float64) *Builder {
	b.param.DefaultValue = b.param.Normalize(value)
	return b
}

func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Steps makes the parameter discrete with count+1 positions
func (b *Builder) Steps(count int32) *Builder {
	b.param.StepCount = count
	return b
}

// Integer snaps the parameter to whole numbers across its range. Call it
// after Range.
func (b *Builder) Integer() *Builder {
	b.param.StepCount = int32(math.Round(b.param.Max - b.param.Min))
	b.param.formatFunc = func(v float64) string { return fmt.Sprintf("%.0f", v) }
	b.param.parseFunc = func(s string) (float64, error) {
		v, err := parseFloat(s)
		return math.Round(v), err
	}
	return b
}

// Group assigns the parameter to a host unit (filter slot, reverb, ...)
func (b *Builder) Group(unitID int32) *Builder {
	b.param.UnitID = unitID
	return b
}

// Toggle makes this an on/off switch
func (b *Builder) Toggle(on bool) *Builder {
	b.param.Min, b.param.Max = 0, 1
	b.param.StepCount = 1
	b.param.DefaultValue = 0
	if on {
		b.param.DefaultValue = 1
	}
	b.param.formatFunc = OnOffFormatter
	b.param.parseFunc = OnOffParser
	return b
}

func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build returns the parameter holding its default value
func (b *Builder) Build() *Parameter {
	b.param.SetValue(b.param.DefaultValue)
	return b.param
}
