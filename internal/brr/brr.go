// Package brr implements the BRR (bit-rate-reduced ADPCM) codec spec.md
// §4.2 describes: an exhaustive per-block shift/filter encoder with
// optional treble-enhancement and loop wiring, a decoder, and a
// validator. Grounded on original_source/src/nspc/BrrCodec.cpp (itself
// adapted from BRRtools by Bregalad/Kode54/Optiroc) and on the DSP's
// own decode path in internal/dsp/brr.go, which this package's decoder
// matches bit for bit for shift values 0..12. For shift values above
// 12 the decoder follows BRRtools (+2048 for a non-negative nibble,
// -2048 for a negative one), where the DSP path yields 0 or -2048.
package brr

import (
	"math"

	"github.com/ntrak/nspctool/internal/bits"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "brr"

// EncodeOptions controls how Encode compresses a mono PCM16 stream.
type EncodeOptions struct {
	EnableLoop      bool
	LoopStartSample int
	EnhanceTreble   bool // compensates the DSP's Gaussian interpolation low-pass

	// FilterEnabled disables specific predictor filters from the
	// brute-force search; zero value enables all four.
	FilterEnabled [4]bool
	// DisableWrap turns off the reproduction of the hardware's 15-bit
	// delta wraparound during the encoder's own decode simulation; the
	// zero value leaves wrapping on.
	DisableWrap bool
}

// NewEncodeOptions returns EncodeOptions with all four filters enabled
// and delta wrapping on, the sensible default for a fresh caller.
func NewEncodeOptions() EncodeOptions {
	return EncodeOptions{FilterEnabled: [4]bool{true, true, true, true}}
}

// EncodeResult is a compressed BRR stream plus, when looping was
// requested, the byte offset of the loop point.
type EncodeResult struct {
	Bytes           []byte
	LoopOffsetBytes uint32
}

type encoderState struct {
	p1, p2         int
	filterAtLoop   byte
	p1AtLoop       int
	p2AtLoop       int
	filterEnabled  [4]bool
	wrapEnabled    bool
}

// brrPrediction computes the filter's linear combination of the
// previous two decoded samples, scaled the same way the real decoder
// in internal/dsp/brr.go is.
func brrPrediction(filter byte, p1, p2 int) int {
	switch filter {
	case 1:
		return p1 - (p1 >> 4)
	case 2:
		p := p1 << 1
		p += (-(p1 + (p1 << 1))) >> 5
		p -= p2
		p += p2 >> 4
		return p
	case 3:
		p := p1 << 1
		p += (-(p1 + (p1 << 2) + (p1 << 3))) >> 6
		p -= p2
		p += (p2 + (p2 << 1)) >> 4
		return p
	default:
		return 0
	}
}

func clamp16Wrap(value int) int {
	if int(int16(value)) != value {
		return int(int16(0x7FFF - (value >> 24)))
	}
	return value
}

// mashBlock runs one candidate (shift, filter) over a 16-sample block,
// optionally committing the encoder's running p1/p2 and emitting the
// 9-byte block, and returns the squared-error score.
func mashBlock(state *encoderState, shift, filter byte, pcm [16]int, writeBlock, isEndpoint bool, out *[9]byte) float64 {
	var errSum float64
	l1, l2 := state.p1, state.p2
	step := 1 << shift

	for i := 0; i < 16; i++ {
		vlin := brrPrediction(filter, l1, l2) >> 1
		d := (pcm[i] >> 1) - vlin
		da := d
		if da < 0 {
			da = -da
		}
		if state.wrapEnabled && da > 16384 && da < 32768 {
			d = d - 32768*(d>>24)
		}

		dp := d + (step << 2) + (step >> 2)
		c := 0
		if dp > 0 {
			if step > 1 {
				c = dp / (step / 2)
			} else {
				c = dp * 2
			}
			if c > 15 {
				c = 15
			}
		}
		c -= 8
		dp = (c << shift) >> 1
		if shift > 12 {
			dp = (dp >> 14) &^ 0x7FF
		}
		c &= 0xF

		l2 = l1
		l1 = clamp16Wrap(vlin+dp) * 2

		e := pcm[i] - l1
		errSum += float64(e) * float64(e)

		if writeBlock {
			shiftedC := byte(c)
			if i&1 != 0 {
				out[1+i/2] |= shiftedC
			} else {
				out[1+i/2] |= shiftedC << 4
			}
		}
	}

	if isEndpoint {
		switch state.filterAtLoop {
		case 0:
			errSum /= 16
		case 1:
			e := l1 - state.p1AtLoop
			errSum += float64(e) * float64(e)
			errSum /= 17
		default:
			e1 := l1 - state.p1AtLoop
			e2 := l2 - state.p2AtLoop
			errSum += float64(e1) * float64(e1)
			errSum += float64(e2) * float64(e2)
			errSum /= 18
		}
	} else {
		errSum /= 16
	}

	if writeBlock {
		state.p1, state.p2 = l1, l2
		out[0] = shift<<4 | filter<<2
		if isEndpoint {
			out[0] |= 0x01
		}
	}

	return errSum
}

func encodeBlock(state *encoderState, pcm [16]int, isLoopPoint, isEndpoint bool) [9]byte {
	bestShift, bestFilter := byte(0), byte(0)
	bestErr := math.Inf(1)

	for shift := 0; shift < 13; shift++ {
		for filter := 0; filter < 4; filter++ {
			if !state.filterEnabled[filter] {
				continue
			}
			var discard [9]byte
			e := mashBlock(state, byte(shift), byte(filter), pcm, false, isEndpoint, &discard)
			if e < bestErr {
				bestErr = e
				bestShift = byte(shift)
				bestFilter = byte(filter)
			}
		}
	}

	if isLoopPoint {
		state.filterAtLoop = bestFilter
		state.p1AtLoop = state.p1
		state.p2AtLoop = state.p2
	}

	var out [9]byte
	mashBlock(state, bestShift, bestFilter, pcm, true, isEndpoint, &out)
	return out
}

// trebleCoefs are the Tepples compensation coefficients used by
// mITroid/BRRtools frontends to pre-sharpen audio before the DSP's
// Gaussian interpolator softens it back down.
var trebleCoefs = [8]float64{
	0.912962, -0.16199, -0.0153283, 0.0426783, -0.0372004, 0.023436, -0.0105816, 0.00250474,
}

func applyTrebleBoost(pcm []int16) []int16 {
	out := make([]int16, len(pcm))
	if len(pcm) == 0 {
		return out
	}
	for i := range pcm {
		acc := float64(pcm[i]) * trebleCoefs[0]
		for k := 1; k < len(trebleCoefs); k++ {
			plus := i + k
			if plus >= len(pcm) {
				plus = len(pcm) - 1
			}
			minus := 0
			if i >= k {
				minus = i - k
			}
			acc += trebleCoefs[k] * float64(pcm[plus])
			acc += trebleCoefs[k] * float64(pcm[minus])
		}
		out[i] = int16(bits.SClamp16(int(math.Round(acc))))
	}
	return out
}

func normalizeInput(pcm []int16) ([]int, error) {
	if len(pcm) == 0 {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "input PCM data is empty")
	}
	samples := make([]int, len(pcm))
	for i, s := range pcm {
		samples[i] = int(s)
	}
	if rem := len(samples) % 16; rem != 0 {
		padding := 16 - rem
		padded := make([]int, padding+len(samples))
		copy(padded[padding:], samples)
		samples = padded
	}
	if len(samples) < 16 {
		samples = append(samples, make([]int, 16-len(samples))...)
	}
	return samples, nil
}

// Encode compresses monoPCM (signed 16-bit mono) into a BRR stream.
func Encode(monoPCM []int16, opts EncodeOptions) (EncodeResult, error) {
	working := monoPCM
	if opts.EnhanceTreble {
		working = applyTrebleBoost(monoPCM)
	}

	samples, err := normalizeInput(working)
	if err != nil {
		return EncodeResult{}, err
	}

	loopStart := opts.LoopStartSample
	if opts.EnableLoop {
		if loopStart >= len(working) {
			return EncodeResult{}, ntrakerr.New(ntrakerr.InvalidInput, object, "loop start sample %d is out of range (len %d)", loopStart, len(working))
		}
		prepended := len(samples) - len(working)
		loopStart += prepended
		loopStart -= loopStart % 16
	}

	addInitialBlock := false
	for i := 0; i < 16; i++ {
		if samples[i] != 0 {
			addInitialBlock = true
			break
		}
	}

	filterEnabled := opts.FilterEnabled
	if filterEnabled == ([4]bool{}) {
		filterEnabled = [4]bool{true, true, true, true}
	}
	state := &encoderState{filterEnabled: filterEnabled, wrapEnabled: !opts.DisableWrap}

	var out []byte
	if addInitialBlock {
		loopFlag := byte(0)
		if opts.EnableLoop {
			loopFlag = 0x02
		}
		out = append(out, loopFlag)
		out = append(out, make([]byte, 8)...)
	}

	for sampleIndex := 0; sampleIndex < len(samples); sampleIndex += 16 {
		var block [16]int
		copy(block[:], samples[sampleIndex:sampleIndex+16])

		isLoopPoint := opts.EnableLoop && sampleIndex == loopStart
		isEndpoint := sampleIndex+16 == len(samples)
		b := encodeBlock(state, block, isLoopPoint, isEndpoint)
		if opts.EnableLoop {
			b[0] |= 0x02
		}
		out = append(out, b[:]...)
	}

	result := EncodeResult{Bytes: out}
	if opts.EnableLoop {
		loopBlockIndex := loopStart / 16
		if addInitialBlock {
			loopBlockIndex++
		}
		result.LoopOffsetBytes = uint32(loopBlockIndex * 9)
	}
	return result, nil
}

// Decode expands a BRR stream to signed-16 mono PCM, stopping at the
// first block whose end bit is set. Fails on empty or
// non-multiple-of-9 input, per spec §4.2's validation contract.
func Decode(data []byte) ([]int16, error) {
	if err := validateLength(data); err != nil {
		return nil, err
	}

	pcm := make([]int16, 0, (len(data)/9)*16)
	p1, p2 := 0, 0
	for off := 0; off < len(data); off += 9 {
		header := data[off]
		filter := (header >> 2) & 0x3
		shift := (header >> 4) & 0xF

		for i := 0; i < 8; i++ {
			b := data[off+1+i]
			hi := decodeNibble(int(b>>4), shift, filter, &p1, &p2)
			lo := decodeNibble(int(b&0xF), shift, filter, &p1, &p2)
			pcm = append(pcm, int16(hi), int16(lo))
		}

		if header&0x1 != 0 {
			break
		}
	}
	return pcm, nil
}

func decodeNibble(nibble int, shift, filter byte, p1, p2 *int) int {
	var a int
	if shift <= 0xC {
		n := nibble
		if n >= 8 {
			n -= 16
		}
		a = (n << shift) >> 1
	} else {
		if nibble < 8 {
			a = 2048
		} else {
			a = -2048
		}
	}

	a += brrPrediction(filter, *p1, *p2)
	if a > 0x7FFF {
		a = 0x7FFF
	} else if a < -0x8000 {
		a = -0x8000
	}
	if a > 0x3FFF {
		a -= 0x8000
	} else if a < -0x4000 {
		a += 0x8000
	}

	*p2 = *p1
	*p1 = a
	return 2 * a
}

func validateLength(data []byte) error {
	if len(data) == 0 {
		return ntrakerr.New(ntrakerr.InvalidInput, object, "BRR data is empty")
	}
	if len(data)%9 != 0 {
		return ntrakerr.New(ntrakerr.InvalidInput, object, "BRR data size %d is not a multiple of 9 bytes", len(data))
	}
	return nil
}

// Validate checks that data is a well-formed BRR payload per spec
// §4.2: nonempty, a multiple of 9 bytes, every shift nibble ≤ 12
// unless allowExtendedShift permits the hardware's wraparound range,
// and the end flag appears exactly once, only in the final block.
func Validate(data []byte, allowExtendedShift bool) error {
	if err := validateLength(data); err != nil {
		return err
	}

	blocks := len(data) / 9
	for i := 0; i < blocks; i++ {
		header := data[i*9]
		shift := (header >> 4) & 0xF
		if shift > 12 && !allowExtendedShift {
			return ntrakerr.New(ntrakerr.InvalidInput, object, "block %d has out-of-range shift %d", i, shift)
		}
		end := header&0x1 != 0
		if end && i != blocks-1 {
			return ntrakerr.New(ntrakerr.InvalidInput, object, "block %d sets the end flag before the final block", i)
		}
		if !end && i == blocks-1 {
			return ntrakerr.New(ntrakerr.InvalidInput, object, "final block %d is missing the end flag", i)
		}
	}

	if _, err := Decode(data); err != nil {
		return ntrakerr.Wrap(ntrakerr.InvariantViolation, object, err)
	}
	return nil
}
