package nspc

// ParseVcmd decodes one vcmd payload given its canonical id. next must
// return successive raw parameter bytes (big enough slices are the
// caller's responsibility — VcmdParamByteCount(id) bytes are
// consumed). resolveSubroutine assigns or looks up the stable
// subroutine id for an address; it is only invoked for
// VcmdIDSubroutineCall.
func ParseVcmd(id byte, next func() byte, resolveSubroutine func(addr uint16) int) VcmdPayload {
	switch id {
	case VcmdIDInst:
		return VcmdInst{InstrumentIndex: next()}
	case VcmdIDPanning:
		return VcmdPanning{Pan: next()}
	case VcmdIDPanFade:
		return VcmdPanFade{Time: next(), Target: next()}
	case VcmdIDVibratoOn:
		return VcmdVibratoOn{Delay: next(), Rate: next(), Depth: next()}
	case VcmdIDVibratoOff:
		return VcmdVibratoOff{}
	case VcmdIDGlobalVolume:
		return VcmdGlobalVolume{Volume: next()}
	case VcmdIDGlobalVolumeFade:
		return VcmdGlobalVolumeFade{Time: next(), Target: next()}
	case VcmdIDTempo:
		return VcmdTempo{Tempo: next()}
	case VcmdIDTempoFade:
		return VcmdTempoFade{Time: next(), Target: next()}
	case VcmdIDGlobalTranspose:
		return VcmdGlobalTranspose{Semitones: int8(next())}
	case VcmdIDPerVoiceTranspose:
		return VcmdPerVoiceTranspose{Semitones: int8(next())}
	case VcmdIDTremoloOn:
		return VcmdTremoloOn{Delay: next(), Rate: next(), Depth: next()}
	case VcmdIDTremoloOff:
		return VcmdTremoloOff{}
	case VcmdIDVolume:
		return VcmdVolume{Volume: next()}
	case VcmdIDVolumeFade:
		return VcmdVolumeFade{Time: next(), Target: next()}
	case VcmdIDSubroutineCall:
		lo, hi := next(), next()
		addr := uint16(lo) | uint16(hi)<<8
		count := next()
		return VcmdSubroutineCall{SubroutineID: resolveSubroutine(addr), OriginalAddr: addr, Count: int(count)}
	case VcmdIDVibratoFadeIn:
		return VcmdVibratoFadeIn{Time: next()}
	case VcmdIDPitchEnvelopeTo:
		return VcmdPitchEnvelopeTo{Delay: next(), Length: next(), Semitone: next()}
	case VcmdIDPitchEnvelopeFrom:
		return VcmdPitchEnvelopeFrom{Delay: next(), Length: next(), Semitone: next()}
	case VcmdIDPitchEnvelopeOff:
		return VcmdPitchEnvelopeOff{}
	case VcmdIDFineTune:
		return VcmdFineTune{Amount: int8(next())}
	case VcmdIDEchoOn:
		return VcmdEchoOn{ChannelMask: next(), VolumeLeft: next(), VolumeRight: next()}
	case VcmdIDEchoOff:
		return VcmdEchoOff{}
	case VcmdIDEchoParams:
		return VcmdEchoParams{Delay: next(), Feedback: next(), FirIndex: next()}
	case VcmdIDEchoVolumeFade:
		return VcmdEchoVolumeFade{Time: next(), TargetLeft: next(), TargetRight: next()}
	case VcmdIDPitchSlideToNote:
		return VcmdPitchSlideToNote{Delay: next(), Length: next(), Note: next()}
	case VcmdIDPercussionBaseInstrument:
		return VcmdPercussionBaseInstrument{BaseIndex: next()}
	case VcmdIDNOP:
		lo, hi := next(), next()
		return VcmdNOP{Raw: uint16(lo) | uint16(hi)<<8}
	case VcmdIDMuteChannel:
		return VcmdMuteChannel{}
	case VcmdIDFastForwardOn:
		return VcmdFastForwardOn{}
	case VcmdIDFastForwardOff:
		return VcmdFastForwardOff{}
	default:
		return VcmdUnused{}
	}
}

// EncodeVcmd appends payload's parameter bytes (not the opcode) via
// emit, the inverse of ParseVcmd.
func EncodeVcmd(payload VcmdPayload, emit func(byte)) {
	switch v := payload.(type) {
	case VcmdInst:
		emit(v.InstrumentIndex)
	case VcmdPanning:
		emit(v.Pan)
	case VcmdPanFade:
		emit(v.Time)
		emit(v.Target)
	case VcmdVibratoOn:
		emit(v.Delay)
		emit(v.Rate)
		emit(v.Depth)
	case VcmdVibratoOff:
	case VcmdGlobalVolume:
		emit(v.Volume)
	case VcmdGlobalVolumeFade:
		emit(v.Time)
		emit(v.Target)
	case VcmdTempo:
		emit(v.Tempo)
	case VcmdTempoFade:
		emit(v.Time)
		emit(v.Target)
	case VcmdGlobalTranspose:
		emit(byte(v.Semitones))
	case VcmdPerVoiceTranspose:
		emit(byte(v.Semitones))
	case VcmdTremoloOn:
		emit(v.Delay)
		emit(v.Rate)
		emit(v.Depth)
	case VcmdTremoloOff:
	case VcmdVolume:
		emit(v.Volume)
	case VcmdVolumeFade:
		emit(v.Time)
		emit(v.Target)
	case VcmdSubroutineCall:
		emit(byte(v.OriginalAddr))
		emit(byte(v.OriginalAddr >> 8))
		emit(byte(v.Count))
	case VcmdVibratoFadeIn:
		emit(v.Time)
	case VcmdPitchEnvelopeTo:
		emit(v.Delay)
		emit(v.Length)
		emit(v.Semitone)
	case VcmdPitchEnvelopeFrom:
		emit(v.Delay)
		emit(v.Length)
		emit(v.Semitone)
	case VcmdPitchEnvelopeOff:
	case VcmdFineTune:
		emit(byte(v.Amount))
	case VcmdEchoOn:
		emit(v.ChannelMask)
		emit(v.VolumeLeft)
		emit(v.VolumeRight)
	case VcmdEchoOff:
	case VcmdEchoParams:
		emit(v.Delay)
		emit(v.Feedback)
		emit(v.FirIndex)
	case VcmdEchoVolumeFade:
		emit(v.Time)
		emit(v.TargetLeft)
		emit(v.TargetRight)
	case VcmdPitchSlideToNote:
		emit(v.Delay)
		emit(v.Length)
		emit(v.Note)
	case VcmdPercussionBaseInstrument:
		emit(v.BaseIndex)
	case VcmdNOP:
		emit(byte(v.Raw))
		emit(byte(v.Raw >> 8))
	case VcmdMuteChannel:
	case VcmdFastForwardOn:
	case VcmdFastForwardOff:
	case VcmdExtension:
		for _, b := range v.Params {
			emit(b)
		}
	case VcmdUnused:
	}
}

// EncodedParamLen returns the number of parameter bytes EncodeVcmd will
// emit for payload, without actually encoding it.
func EncodedParamLen(payload VcmdPayload) int {
	if ext, ok := payload.(VcmdExtension); ok {
		return len(ext.Params)
	}
	return VcmdParamByteCount(payload.VcmdID())
}
