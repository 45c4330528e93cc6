package param

import (
	"fmt"
	"strconv"
	"strings"
)

// unitScale maps a lower-case unit suffix to the factor that converts it to
// the parameter's plain unit. Longer suffixes must come first.
type unitScale struct {
	suffix string
	scale  float64
}

var (
	frequencyUnits = []unitScale{{"khz", 1000}, {"hz", 1}}
	timeUnits      = []unitScale{{"ms", 1}, {"s", 1000}}
	decibelUnits   = []unitScale{{"db", 1}}
	percentUnits   = []unitScale{{"%", 1}}
)

// parseScaled reads a number with an optional unit suffix. A bare number is
// taken as the plain unit.
func parseScaled(str string, units []unitScale) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(str))
	scale := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			scale = u.scale
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", str)
	}
	return v * scale, nil
}

// FrequencyFormatter shows Hz below 1 kHz and kHz above
func FrequencyFormatter(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%.2f kHz", hz/1000)
	}
	return fmt.Sprintf("%.1f Hz", hz)
}

// FrequencyParser accepts "440", "440 Hz" or "1.5 kHz"
func FrequencyParser(str string) (float64, error) {
	return parseScaled(str, frequencyUnits)
}

func DecibelParser(str string) (float64, error) {
	return parseScaled(str, decibelUnits)
}

func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value)
}

func PercentParser(str string) (float64, error) {
	return parseScaled(str, percentUnits)
}

// TimeFormatter takes milliseconds and switches to seconds from 1 s
func TimeFormatter(ms float64) string {
	if ms < 1000 {
		return fmt.Sprintf("%.1f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// TimeParser returns milliseconds for "250", "250 ms" or "1.5 s"
func TimeParser(str string) (float64, error) {
	return parseScaled(str, timeUnits)
}

func OnOffFormatter(value float64) string {
	if value > 0.5 {
		return "On"
	}
	return "Off"
}

func OnOffParser(str string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "on", "yes", "true", "1":
		return 1, nil
	case "off", "no", "false", "0":
		return 0, nil
	}
	return 0, fmt.Errorf("expected on or off, got %q", str)
}
