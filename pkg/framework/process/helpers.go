package process

// PassThrough copies each input channel to the matching output channel.
// Channels shorter than the block are skipped.
func (c *Context) PassThrough() {
	n := c.NumSamples()
	if n == 0 {
		return
	}
	for ch := 0; ch < c.NumInputChannels() && ch < c.NumOutputChannels(); ch++ {
		in, out := c.Input[ch], c.Output[ch]
		if len(in) < n || len(out) < n || &in[0] == &out[0] {
			continue
		}
		copy(out[:n], in[:n])
	}
}

// ClearExtraOutputs zeros output channels that have no input counterpart
func (c *Context) ClearExtraOutputs() {
	n := c.NumSamples()
	for ch := c.NumInputChannels(); ch < c.NumOutputChannels(); ch++ {
		clear(c.Output[ch][:min(n, len(c.Output[ch]))])
	}
}
