// Package process provides the per-block processing context handed to a processor.
package process

import (
	"github.com/justyntemme/imagine/pkg/midi"
)

// Context carries one block of audio and the events that fall inside it.
// A host builds it once and reuses it, so nothing here allocates per block.
type Context struct {
	Input      [][]float32
	Output     [][]float32
	SampleRate float64

	// Events holds the block's input events in arrival order
	Events *midi.Buffer

	numSamples int
}

// NewContext creates a context whose event buffer holds maxEvents per block
func NewContext(maxEvents int) *Context {
	return &Context{Events: midi.NewBuffer(maxEvents)}
}

// SetBlock installs the buffers for the next block. Output channels are
// trimmed to n samples; input may be nil for an instrument with no input bus.
func (c *Context) SetBlock(input, output [][]float32, n int) {
	c.Input = input
	c.Output = output
	c.numSamples = n
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	if c.numSamples > 0 {
		return c.numSamples
	}
	if len(c.Output) > 0 {
		return len(c.Output[0])
	}
	if len(c.Input) > 0 {
		return len(c.Input[0])
	}
	return 0
}

func (c *Context) NumInputChannels() int {
	return len(c.Input)
}

func (c *Context) NumOutputChannels() int {
	return len(c.Output)
}

// AddInputEvent queues an event for this block. It returns false when the
// event buffer is full.
func (c *Context) AddInputEvent(e midi.Event) bool {
	return c.Events.Add(e)
}

// ClearInputEvents empties the event buffer; hosts call it after each block
func (c *Context) ClearInputEvents() {
	c.Events.Clear()
}
