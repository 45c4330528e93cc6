package param

import (
	"fmt"
	"strings"
)

// ChoiceOption represents a single choice in a list parameter
type ChoiceOption struct {
	Value   float64
	Name    string
	Aliases []string
}

// Choice creates a parameter builder for a multiple choice parameter.
// Options are expected in ascending Value order.
func Choice(id uint32, name string, options []ChoiceOption) *Builder {
	formatter := func(value float64) string {
		for _, opt := range options {
			if opt.Value == value {
				return opt.Name
			}
		}
		index := int(value)
		if index >= 0 && index < len(options) {
			return options[index].Name
		}
		return "Unknown"
	}

	parser := func(str string) (float64, error) {
		s := strings.TrimSpace(str)
		for _, opt := range options {
			if strings.EqualFold(s, opt.Name) {
				return opt.Value, nil
			}
			for _, alias := range opt.Aliases {
				if strings.EqualFold(s, alias) {
					return opt.Value, nil
				}
			}
		}
		return 0, fmt.Errorf("unknown option: %s", str)
	}

	b := New(id, name).Formatter(formatter, parser)
	b.param.Flags |= IsList
	if len(options) == 0 {
		return b
	}
	return b.
		Range(options[0].Value, options[len(options)-1].Value).
		Steps(int32(len(options) - 1)).
		Default(options[0].Value)
}

// GainParameter creates a gain parameter in dB; the floor reads as -inf
func GainParameter(id uint32, name string, minDB, maxDB, defaultDB float64) *Builder {
	return New(id, name).
		Range(minDB, maxDB).
		Default(defaultDB).
		Unit("dB").
		Formatter(func(v float64) string {
			if v <= minDB {
				return "-∞ dB"
			}
			return fmt.Sprintf("%.1f dB", v)
		}, func(s string) (float64, error) {
			if strings.Contains(strings.ToLower(s), "inf") || strings.Contains(s, "∞") {
				return minDB, nil
			}
			return DecibelParser(s)
		})
}

// FrequencyParameter creates a frequency parameter in Hz
func FrequencyParameter(id uint32, name string, min, max, defaultVal float64) *Builder {
	return New(id, name).
		Range(min, max).
		Default(defaultVal).
		Unit("Hz").
		Formatter(FrequencyFormatter, FrequencyParser)
}

// QParameter creates a Q/resonance parameter
func QParameter(id uint32, name string, minQ, maxQ, defaultQ float64) *Builder {
	return New(id, name).
		Range(minQ, maxQ).
		Default(defaultQ).
		Formatter(func(v float64) string {
			return fmt.Sprintf("Q: %.2f", v)
		}, func(s string) (float64, error) {
			s = strings.TrimPrefix(strings.TrimSpace(s), "Q:")
			return parseFloat(strings.TrimSpace(s))
		})
}

// TimeParameter creates a time parameter in milliseconds
func TimeParameter(id uint32, name string, minMs, maxMs, defaultMs float64) *Builder {
	return New(id, name).
		Range(minMs, maxMs).
		Default(defaultMs).
		Unit("ms").
		Formatter(TimeFormatter, TimeParser)
}

// SecondsParameter creates a time parameter in seconds
func SecondsParameter(id uint32, name string, minS, maxS, defaultS float64) *Builder {
	return New(id, name).
		Range(minS, maxS).
		Default(defaultS).
		Unit("s").
		Formatter(func(v float64) string {
			return TimeFormatter(v * 1000)
		}, func(s string) (float64, error) {
			ms, err := TimeParser(s)
			if err != nil {
				return 0, err
			}
			return ms / 1000, nil
		})
}

// PercentParameter creates a 0-100% parameter
func PercentParameter(id uint32, name string, minPct, maxPct, defaultPct float64) *Builder {
	return New(id, name).
		Range(minPct, maxPct).
		Default(defaultPct).
		Unit("%").
		Formatter(PercentFormatter, PercentParser)
}

// LevelParameter creates a unitless 0-1 parameter shown with two decimals
func LevelParameter(id uint32, name string, defaultVal float64) *Builder {
	return NumberParameter(id, name, 0, 1, defaultVal)
}

// NumberParameter creates a plain numeric parameter
func NumberParameter(id uint32, name string, min, max, defaultVal float64) *Builder {
	return New(id, name).
		Range(min, max).
		Default(defaultVal).
		Formatter(func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		}, parseFloat)
}

// ToggleParameter creates an on/off switch
func ToggleParameter(id uint32, name string, on bool) *Builder {
	return New(id, name).Toggle(on)
}

func parseFloat(s string) (float64, error) {
	var value float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &value)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return value, nil
}
