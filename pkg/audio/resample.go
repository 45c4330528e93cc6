package audio

import (
	"github.com/xyproto/synth"
)

// Resample converts buf to the target rate. A buffer already at that rate
// is returned as is.
func Resample(buf *Buffer, toRate float64) *Buffer {
	if buf.NumChannels() == 0 || toRate <= 0 || buf.SampleRate <= 0 || buf.SampleRate == toRate {
		return buf
	}

	from, to := int(buf.SampleRate), int(toRate)
	out := &Buffer{SampleRate: toRate, Data: make([][]float32, buf.NumChannels())}

	work := make([]float64, buf.NumSamples())
	for ch, src := range buf.Data {
		for i, v := range src {
			work[i] = float64(v)
		}
		res := synth.Resample(work, from, to)
		dst := make([]float32, len(res))
		for i, v := range res {
			dst[i] = float32(v)
		}
		out.Data[ch] = dst
	}

	// keep channels equal length
	n := len(out.Data[0])
	for _, ch := range out.Data[1:] {
		if len(ch) < n {
			n = len(ch)
		}
	}
	for ch := range out.Data {
		out.Data[ch] = out.Data[ch][:n]
	}
	return out
}
