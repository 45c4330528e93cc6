// Package plugin provides the processor contract and a base implementation
// that carries the boilerplate every processor needs.
package plugin

import (
	"io"

	"github.com/justyntemme/imagine/pkg/framework/param"
	"github.com/justyntemme/imagine/pkg/framework/process"
	"github.com/justyntemme/imagine/pkg/framework/state"
)

// Processor is what a host drives. ProcessAudio runs on the audio thread and
// must not allocate, lock or block; everything else is control-thread only.
type Processor interface {
	Initialize(sampleRate float64, maxBlockSize int32) error
	ProcessAudio(ctx *process.Context)
	GetParameters() *param.Registry
	SetActive(active bool) error
	GetLatencySamples() int32
	GetTailSamples() int32
}

// BaseProcessor provides common functionality for audio processors
type BaseProcessor struct {
	Info Info

	params       *param.Registry
	state        *state.Manager
	sampleRate   float64
	maxBlockSize int32
	active       bool

	onInitialize func(sampleRate float64, maxBlockSize int32) error
	onSetActive  func(active bool) error
	onReset      func()
}

// NewBaseProcessor creates a base processor with an empty parameter registry
func NewBaseProcessor(info Info) *BaseProcessor {
	params := param.NewRegistry()
	return &BaseProcessor{
		Info:   info,
		params: params,
		state:  state.NewManager(params),
	}
}

// Initialize implements the Processor interface
func (b *BaseProcessor) Initialize(sampleRate float64, maxBlockSize int32) error {
	b.sampleRate = sampleRate
	b.maxBlockSize = maxBlockSize

	if b.onInitialize != nil {
		return b.onInitialize(sampleRate, maxBlockSize)
	}
	return nil
}

// GetParameters implements the Processor interface
func (b *BaseProcessor) GetParameters() *param.Registry {
	return b.params
}

// SetActive implements the Processor interface. Deactivation resets
// processing state.
func (b *BaseProcessor) SetActive(active bool) error {
	if !active && b.onReset != nil {
		b.onReset()
	}
	b.active = active

	if b.onSetActive != nil {
		return b.onSetActive(active)
	}
	return nil
}

// IsActive reports the last SetActive state
func (b *BaseProcessor) IsActive() bool {
	return b.active
}

// GetLatencySamples implements the Processor interface - default no latency
func (b *BaseProcessor) GetLatencySamples() int32 {
	return 0
}

// GetTailSamples implements the Processor interface - default no tail
func (b *BaseProcessor) GetTailSamples() int32 {
	return 0
}

func (b *BaseProcessor) SampleRate() float64 {
	return b.sampleRate
}

func (b *BaseProcessor) MaxBlockSize() int32 {
	return b.maxBlockSize
}

// Parameters returns the parameter registry for adding parameters
func (b *BaseProcessor) Parameters() *param.Registry {
	return b.params
}

// State returns the session state manager
func (b *BaseProcessor) State() *state.Manager {
	return b.state
}

// SaveState writes parameters and any custom chunk
func (b *BaseProcessor) SaveState(w io.Writer) error {
	return b.state.Save(w)
}

// LoadState restores parameters and any custom chunk
func (b *BaseProcessor) LoadState(r io.Reader) error {
	return b.state.Load(r)
}

// OnInitialize sets a callback for initialization
func (b *BaseProcessor) OnInitialize(fn func(sampleRate float64, maxBlockSize int32) error) {
	b.onInitialize = fn
}

// OnSetActive sets a callback for activation/deactivation
func (b *BaseProcessor) OnSetActive(fn func(active bool) error) {
	b.onSetActive = fn
}

// OnReset sets a callback for when the processor should reset its state
func (b *BaseProcessor) OnReset(fn func()) {
	b.onReset = fn
}
