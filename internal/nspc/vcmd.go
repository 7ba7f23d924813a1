package nspc

// VcmdPayload is the closed set of virtual-command kinds a Vcmd event
// wraps. Canonical ids (the value the command map's read/write bijections
// translate raw engine bytes to and from) are assigned the engine's
// historical SMW-derived numbering, transcribed from
// original_source/src/nspc/NspcData.cpp's parseVcmd/vcmdParamByteCount.
type VcmdPayload interface {
	isVcmdPayload()
	VcmdID() byte
}

const (
	VcmdIDInst                     byte = 0xE0
	VcmdIDPanning                  byte = 0xE1
	VcmdIDPanFade                  byte = 0xE2
	VcmdIDVibratoOn                byte = 0xE3
	VcmdIDVibratoOff               byte = 0xE4
	VcmdIDGlobalVolume             byte = 0xE5
	VcmdIDGlobalVolumeFade         byte = 0xE6
	VcmdIDTempo                    byte = 0xE7
	VcmdIDTempoFade                byte = 0xE8
	VcmdIDGlobalTranspose          byte = 0xE9
	VcmdIDPerVoiceTranspose        byte = 0xEA
	VcmdIDTremoloOn                byte = 0xEB
	VcmdIDTremoloOff               byte = 0xEC
	VcmdIDVolume                   byte = 0xED
	VcmdIDVolumeFade               byte = 0xEE
	VcmdIDSubroutineCall           byte = 0xEF
	VcmdIDVibratoFadeIn            byte = 0xF0
	VcmdIDPitchEnvelopeTo          byte = 0xF1
	VcmdIDPitchEnvelopeFrom        byte = 0xF2
	VcmdIDPitchEnvelopeOff         byte = 0xF3
	VcmdIDFineTune                 byte = 0xF4
	VcmdIDEchoOn                   byte = 0xF5
	VcmdIDEchoOff                  byte = 0xF6
	VcmdIDEchoParams               byte = 0xF7
	VcmdIDEchoVolumeFade           byte = 0xF8
	VcmdIDPitchSlideToNote         byte = 0xF9
	VcmdIDPercussionBaseInstrument byte = 0xFA
	VcmdIDNOP                      byte = 0xFB
	VcmdIDMuteChannel              byte = 0xFC
	VcmdIDFastForwardOn            byte = 0xFD
	VcmdIDFastForwardOff           byte = 0xFE
	VcmdIDUnused                   byte = 0xFF
)

// VcmdParamByteCount returns the number of parameter bytes (not
// counting the opcode byte itself) a canonical vcmd id consumes.
func VcmdParamByteCount(id byte) int {
	switch id {
	case VcmdIDInst, VcmdIDPanning, VcmdIDGlobalVolume, VcmdIDTempo,
		VcmdIDGlobalTranspose, VcmdIDPerVoiceTranspose, VcmdIDVolume,
		VcmdIDVibratoFadeIn, VcmdIDFineTune, VcmdIDPercussionBaseInstrument:
		return 1
	case VcmdIDPanFade, VcmdIDGlobalVolumeFade, VcmdIDTempoFade, VcmdIDVolumeFade, VcmdIDNOP:
		return 2
	case VcmdIDVibratoOn, VcmdIDTremoloOn, VcmdIDSubroutineCall, VcmdIDPitchEnvelopeTo,
		VcmdIDPitchEnvelopeFrom, VcmdIDEchoOn, VcmdIDEchoParams, VcmdIDEchoVolumeFade,
		VcmdIDPitchSlideToNote:
		return 3
	default: // VibratoOff, TremoloOff, PitchEnvelopeOff, EchoOff, MuteChannel, FF on/off, Unused
		return 0
	}
}

// Vcmd wraps a VcmdPayload as an NspcEvent.
type Vcmd struct {
	Payload VcmdPayload
}

type VcmdInst struct{ InstrumentIndex byte }
type VcmdPanning struct{ Pan byte }
type VcmdPanFade struct{ Time, Target byte }
type VcmdVibratoOn struct{ Delay, Rate, Depth byte }
type VcmdVibratoOff struct{}
type VcmdGlobalVolume struct{ Volume byte }
type VcmdGlobalVolumeFade struct{ Time, Target byte }
type VcmdTempo struct{ Tempo byte }
type VcmdTempoFade struct{ Time, Target byte }
type VcmdGlobalTranspose struct{ Semitones int8 }
type VcmdPerVoiceTranspose struct{ Semitones int8 }
type VcmdTremoloOn struct{ Delay, Rate, Depth byte }
type VcmdTremoloOff struct{}
type VcmdVolume struct{ Volume byte }
type VcmdVolumeFade struct{ Time, Target byte }

// VcmdSubroutineCall records the callee by both its stable id (assigned
// on first sight during disassembly) and the address recovered from
// ARAM, so serialization can re-resolve the address after layout.
type VcmdSubroutineCall struct {
	SubroutineID int
	OriginalAddr uint16
	Count        int // 1..0xFF
}

type VcmdVibratoFadeIn struct{ Time byte }
type VcmdPitchEnvelopeTo struct{ Delay, Length, Semitone byte }
type VcmdPitchEnvelopeFrom struct{ Delay, Length, Semitone byte }
type VcmdPitchEnvelopeOff struct{}
type VcmdFineTune struct{ Amount int8 }
type VcmdEchoOn struct{ ChannelMask, VolumeLeft, VolumeRight byte }
type VcmdEchoOff struct{}
type VcmdEchoParams struct{ Delay, Feedback, FirIndex byte }
type VcmdEchoVolumeFade struct{ Time, TargetLeft, TargetRight byte }
type VcmdPitchSlideToNote struct{ Delay, Length, Note byte }
type VcmdPercussionBaseInstrument struct{ BaseIndex byte }
type VcmdNOP struct{ Raw uint16 }
type VcmdMuteChannel struct{}
type VcmdFastForwardOn struct{}
type VcmdFastForwardOff struct{}

// VcmdUnused marks an id the engine declares reserved/illegal; parsing
// a track byte that maps to it is an error (spec's "Failure modes").
type VcmdUnused struct{}

// VcmdExtension carries an engine-specific vcmd the base command map
// doesn't know, identified by its canonical id with up to 4 raw
// parameter bytes.
type VcmdExtension struct {
	ID     byte
	Params []byte
}

func (VcmdInst) isVcmdPayload()                     {}
func (VcmdPanning) isVcmdPayload()                  {}
func (VcmdPanFade) isVcmdPayload()                  {}
func (VcmdVibratoOn) isVcmdPayload()                {}
func (VcmdVibratoOff) isVcmdPayload()                {}
func (VcmdGlobalVolume) isVcmdPayload()             {}
func (VcmdGlobalVolumeFade) isVcmdPayload()         {}
func (VcmdTempo) isVcmdPayload()                    {}
func (VcmdTempoFade) isVcmdPayload()                {}
func (VcmdGlobalTranspose) isVcmdPayload()          {}
func (VcmdPerVoiceTranspose) isVcmdPayload()        {}
func (VcmdTremoloOn) isVcmdPayload()                {}
func (VcmdTremoloOff) isVcmdPayload()                {}
func (VcmdVolume) isVcmdPayload()                   {}
func (VcmdVolumeFade) isVcmdPayload()               {}
func (VcmdSubroutineCall) isVcmdPayload()           {}
func (VcmdVibratoFadeIn) isVcmdPayload()            {}
func (VcmdPitchEnvelopeTo) isVcmdPayload()          {}
func (VcmdPitchEnvelopeFrom) isVcmdPayload()        {}
func (VcmdPitchEnvelopeOff) isVcmdPayload()          {}
func (VcmdFineTune) isVcmdPayload()                 {}
func (VcmdEchoOn) isVcmdPayload()                   {}
func (VcmdEchoOff) isVcmdPayload()                   {}
func (VcmdEchoParams) isVcmdPayload()                {}
func (VcmdEchoVolumeFade) isVcmdPayload()            {}
func (VcmdPitchSlideToNote) isVcmdPayload()          {}
func (VcmdPercussionBaseInstrument) isVcmdPayload()  {}
func (VcmdNOP) isVcmdPayload()                      {}
func (VcmdMuteChannel) isVcmdPayload()               {}
func (VcmdFastForwardOn) isVcmdPayload()             {}
func (VcmdFastForwardOff) isVcmdPayload()            {}
func (VcmdUnused) isVcmdPayload()                    {}
func (VcmdExtension) isVcmdPayload()                 {}

func (VcmdInst) VcmdID() byte                     { return VcmdIDInst }
func (VcmdPanning) VcmdID() byte                  { return VcmdIDPanning }
func (VcmdPanFade) VcmdID() byte                  { return VcmdIDPanFade }
func (VcmdVibratoOn) VcmdID() byte                { return VcmdIDVibratoOn }
func (VcmdVibratoOff) VcmdID() byte               { return VcmdIDVibratoOff }
func (VcmdGlobalVolume) VcmdID() byte             { return VcmdIDGlobalVolume }
func (VcmdGlobalVolumeFade) VcmdID() byte         { return VcmdIDGlobalVolumeFade }
func (VcmdTempo) VcmdID() byte                    { return VcmdIDTempo }
func (VcmdTempoFade) VcmdID() byte                { return VcmdIDTempoFade }
func (VcmdGlobalTranspose) VcmdID() byte          { return VcmdIDGlobalTranspose }
func (VcmdPerVoiceTranspose) VcmdID() byte        { return VcmdIDPerVoiceTranspose }
func (VcmdTremoloOn) VcmdID() byte                { return VcmdIDTremoloOn }
func (VcmdTremoloOff) VcmdID() byte               { return VcmdIDTremoloOff }
func (VcmdVolume) VcmdID() byte                   { return VcmdIDVolume }
func (VcmdVolumeFade) VcmdID() byte               { return VcmdIDVolumeFade }
func (VcmdSubroutineCall) VcmdID() byte           { return VcmdIDSubroutineCall }
func (VcmdVibratoFadeIn) VcmdID() byte            { return VcmdIDVibratoFadeIn }
func (VcmdPitchEnvelopeTo) VcmdID() byte          { return VcmdIDPitchEnvelopeTo }
func (VcmdPitchEnvelopeFrom) VcmdID() byte        { return VcmdIDPitchEnvelopeFrom }
func (VcmdPitchEnvelopeOff) VcmdID() byte         { return VcmdIDPitchEnvelopeOff }
func (VcmdFineTune) VcmdID() byte                 { return VcmdIDFineTune }
func (VcmdEchoOn) VcmdID() byte                   { return VcmdIDEchoOn }
func (VcmdEchoOff) VcmdID() byte                  { return VcmdIDEchoOff }
func (VcmdEchoParams) VcmdID() byte               { return VcmdIDEchoParams }
func (VcmdEchoVolumeFade) VcmdID() byte           { return VcmdIDEchoVolumeFade }
func (VcmdPitchSlideToNote) VcmdID() byte         { return VcmdIDPitchSlideToNote }
func (VcmdPercussionBaseInstrument) VcmdID() byte { return VcmdIDPercussionBaseInstrument }
func (VcmdNOP) VcmdID() byte                      { return VcmdIDNOP }
func (VcmdMuteChannel) VcmdID() byte              { return VcmdIDMuteChannel }
func (VcmdFastForwardOn) VcmdID() byte            { return VcmdIDFastForwardOn }
func (VcmdFastForwardOff) VcmdID() byte           { return VcmdIDFastForwardOff }
func (VcmdUnused) VcmdID() byte                   { return VcmdIDUnused }
func (e VcmdExtension) VcmdID() byte              { return e.ID }
