package param

import (
	"math"
	"testing"
)

func TestChoice(t *testing.T) {
	options := []ChoiceOption{
		{Value: 0, Name: "LowPass", Aliases: []string{"lp"}},
		{Value: 1, Name: "HighPass", Aliases: []string{"hp"}},
		{Value: 2, Name: "BandPass", Aliases: []string{"bp"}},
		{Value: 3, Name: "Notch"},
	}

	param := Choice(100, "Type", options).Build()

	t.Run("Formatter", func(t *testing.T) {
		for i, opt := range options {
			normalized := float64(i) / 3.0
			if got := param.FormatValue(normalized); got != opt.Name {
				t.Errorf("FormatValue(%f) = %s, want %s", normalized, got, opt.Name)
			}
		}
	})

	t.Run("Parser", func(t *testing.T) {
		tests := []struct {
			input         string
			expectedPlain float64
		}{
			{"LowPass", 0},
			{"hp", 1},
			{"bandpass", 2},
			{"Notch", 3},
		}

		for _, test := range tests {
			normalized, err := param.ParseValue(test.input)
			if err != nil {
				t.Errorf("ParseValue(%s) error: %v", test.input, err)
				continue
			}
			plain := param.Denormalize(normalized)
			if math.Abs(plain-test.expectedPlain) > 0.001 {
				t.Errorf("ParseValue(%s) = %f (plain), want %f", test.input, plain, test.expectedPlain)
			}
		}

		if _, err := param.ParseValue("Comb"); err == nil {
			t.Error("Expected error for unknown option")
		}
	})

	t.Run("Index snaps", func(t *testing.T) {
		param.SetValue(0.7)
		if param.Index() != 2 {
			t.Errorf("Expected index 2, got %d", param.Index())
		}
		if param.GetPlainValue() != 2 {
			t.Errorf("Expected plain 2, got %f", param.GetPlainValue())
		}
	})
}

func TestGainParameter(t *testing.T) {
	param := GainParameter(200, "Gain", -60, 12, 0).Build()

	tests := []struct {
		plainValue float64
		expected   string
	}{
		{-60, "-∞ dB"},
		{0, "0.0 dB"},
		{6, "6.0 dB"},
		{-6, "-6.0 dB"},
	}

	for _, test := range tests {
		if got := param.FormatValue(param.Normalize(test.plainValue)); got != test.expected {
			t.Errorf("FormatValue(%f dB) = %s, want %s", test.plainValue, got, test.expected)
		}
	}

	if math.Abs(param.GetPlainValue()) > 1e-9 {
		t.Errorf("Expected default 0 dB, got %f", param.GetPlainValue())
	}
}

func TestToggleParameter(t *testing.T) {
	off := ToggleParameter(1, "Reverb", false).Build()
	on := ToggleParameter(2, "Enabled", true).Build()

	if off.Bool() || !on.Bool() {
		t.Error("Toggle defaults not applied")
	}
	if on.String() != "On" {
		t.Errorf("Expected On, got %s", on.String())
	}

	v, err := off.ParseValue("yes")
	if err != nil || v != 1 {
		t.Errorf("ParseValue(yes) = %f, %v", v, err)
	}
}

func TestTimeParameters(t *testing.T) {
	delay := TimeParameter(1, "Delay", 1, 2000, 250).Build()
	if got := delay.String(); got != "250.0 ms" {
		t.Errorf("Expected 250.0 ms, got %s", got)
	}
	n, err := delay.ParseValue("1.5 s")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(delay.Denormalize(n)-1500) > 1e-9 {
		t.Errorf("Expected 1500 ms, got %f", delay.Denormalize(n))
	}

	release := SecondsParameter(2, "Release", 0, 10, 0.1).Build()
	if got := release.String(); got != "100.0 ms" {
		t.Errorf("Expected 100.0 ms, got %s", got)
	}
}

func TestFrequencyParser(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"440", 440},
		{"440 Hz", 440},
		{"1.5 kHz", 1500},
		{"2khz", 2000},
	}

	for _, tt := range tests {
		got, err := FrequencyParser(tt.in)
		if err != nil {
			t.Errorf("FrequencyParser(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FrequencyParser(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestIntegerParameter(t *testing.T) {
	p := NumberParameter(7, "Duration", -20, 20, 5).Integer().Build()

	if p.StepCount != 40 {
		t.Errorf("Expected 40 steps, got %d", p.StepCount)
	}
	if got := p.String(); got != "5" {
		t.Errorf("Expected 5, got %s", got)
	}
	n, err := p.ParseValue("7.6")
	if err != nil {
		t.Fatal(err)
	}
	if plain := p.Denormalize(n); math.Abs(plain-8) > 1e-9 {
		t.Errorf("Expected parse to round to 8, got %f", plain)
	}
}

func TestUnitParsers(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) (float64, error)
		in    string
		want  float64
	}{
		{"Decibels", DecibelParser, "-6 dB", -6},
		{"Bare decibels", DecibelParser, "3", 3},
		{"Percent", PercentParser, "35%", 35},
		{"Milliseconds", TimeParser, "250ms", 250},
		{"Seconds", TimeParser, "1.5 s", 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.want, got)
			}
		})
	}

	if _, err := TimeParser("soon"); err == nil {
		t.Error("Expected an error for text without a number")
	}
}
