package dsp

// envelopeRun advances voice v's envelope by one step, per spec
// §4.1.2's "Envelope" rules. Transcribed from original_source/
// envelope.cpp, including the ADSR/GAIN branch and the sustain-level
// transition out of Decay.
func (d *DSP) envelopeRun(v *Voice) {
	envelope := v.envelope

	if v.EnvMode == EnvRelease {
		envelope -= 0x8
		if envelope < 0 {
			envelope = 0
		}
		v.Envelope = envelope
		v.envelope = envelope
		return
	}

	var rate int
	envelopeData := int(v.ADSR1)
	if v.ADSR0&0x80 != 0 { // ADSR
		if v.EnvMode >= EnvDecay {
			envelope--
			envelope -= envelope >> 8
			rate = int(v.ADSR1) & 0x1F
			if v.EnvMode == EnvDecay {
				rate = int((v.ADSR0>>4)&0x7)*2 + 16
			}
		} else { // Attack
			rate = int(v.ADSR0&0xF)*2 + 1
			if rate < 31 {
				envelope += 0x20
			} else {
				envelope += 0x400
			}
		}
	} else { // GAIN
		envelopeData = int(v.Gain)
		mode := envelopeData >> 5
		switch {
		case mode < 4: // direct
			envelope = envelopeData << 4
			rate = 31
		case mode == 4: // linear decrease
			rate = envelopeData & 0x1F
			envelope -= 0x20
		case mode < 6: // exponential decrease
			rate = envelopeData & 0x1F
			envelope--
			envelope -= envelope >> 8
		default: // linear increase, two-slope above 0x600
			rate = envelopeData & 0x1F
			envelope += 0x20
			if mode > 6 && uint32(v.envelope) >= 0x600 {
				envelope += 0x8 - 0x20
			}
		}
	}

	if (envelope>>8) == (envelopeData>>5) && v.EnvMode == EnvDecay {
		v.EnvMode = EnvSustain
	}
	v.envelope = envelope

	if uint32(envelope) > 0x7FF {
		if envelope < 0 {
			envelope = 0
		} else {
			envelope = 0x7FF
		}
		if v.EnvMode == EnvAttack {
			v.EnvMode = EnvDecay
		}
	}

	if d.counterPoll(rate) {
		v.Envelope = envelope
	}
}
