package audio

import (
	"bytes"
	"errors"
	"io"

	"github.com/go-audio/wav"
)

// WhisperSampleRate is the PCM rate the recognition engine expects.
const WhisperSampleRate = 16000

// DecodeWAVToFloat32 decodes a WAV blob into 32-bit float PCM samples
// normalized to [-1,1], returning the samples and their sample rate.
func DecodeWAVToFloat32(b []byte) ([]float32, int, error) {
	r := bytes.NewReader(b)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		if err == io.EOF {
			err = nil
		} else {
			return nil, 0, err
		}
	}
	if buf == nil {
		return nil, 0, errors.New("empty wav buffer")
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	maxInt := 1 << (bitDepth - 1)
	if maxInt <= 0 {
		maxInt = 32768
	}
	max := float32(maxInt)
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / max
	}
	sr := int(dec.SampleRate)
	if sr == 0 && buf.Format != nil {
		sr = buf.Format.SampleRate
	}
	if sr == 0 {
		sr = WhisperSampleRate
	}
	return out, sr, nil
}

// ResampleLinear resamples PCM32F from inRate to outRate using linear interpolation.
func ResampleLinear(samples []float32, inRate, outRate int) []float32 {
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(samples) == 0 {
		if inRate == outRate {
			return append([]float32(nil), samples...)
		}
		return samples
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen <= 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(i0))
		s0 := samples[i0]
		s1 := samples[i0+1]
		out[i] = s0 + (s1-s0)*frac
	}
	return out
}
