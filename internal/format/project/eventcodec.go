package project

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

// Packed event-list encoding, spec §6.5: varint counts, per-event
// tagged records, varint-zigzag integers. encoding/binary's
// Uvarint/Varint already implement LEB128 and zigzag respectively, so
// there is nothing to hand-roll here beyond the tag layout itself.

type eventTag byte

const (
	tagDuration   eventTag = 0
	tagNote       eventTag = 1
	tagTie        eventTag = 2
	tagRest       eventTag = 3
	tagPercussion eventTag = 4
	tagVcmd       eventTag = 5
	tagEnd        eventTag = 6
)

// vcmdExtensionTag is the canonical id EncodeEvents writes for
// nspc.VcmdExtension, matching internal/optimize/segment.go's
// hashVcmdSemantic choice of 0xF0FF as a sentinel outside the real
// 0xE0-0xFF canonical id range.
const vcmdExtensionTag = 0xF0FF

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) uvarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	e.buf.Write(tmp[:n])
}

func (e *encoder) varint(v int64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	e.buf.Write(tmp[:n])
}

func (e *encoder) byteVal(b byte) { e.buf.WriteByte(b) }
func (e *encoder) bytes(b []byte) { e.buf.Write(b) }

type decoder struct {
	r *bytes.Reader
}

func (d *decoder) uvarint(object string) (uint64, error) {
	v, err := binary.ReadUvarint(d.r)
	if err != nil {
		return 0, ntrakerr.New(ntrakerr.InvalidInput, object, "truncated uvarint: %v", err)
	}
	return v, nil
}

func (d *decoder) varint(object string) (int64, error) {
	v, err := binary.ReadVarint(d.r)
	if err != nil {
		return 0, ntrakerr.New(ntrakerr.InvalidInput, object, "truncated varint: %v", err)
	}
	return v, nil
}

func (d *decoder) byteVal(object string) (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, ntrakerr.New(ntrakerr.InvalidInput, object, "truncated stream: %v", err)
	}
	return b, nil
}

func (d *decoder) bytesN(object string, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(d.r, out); err != nil {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "truncated payload: %v", err)
	}
	return out, nil
}

// EncodeEvents packs a track/subroutine event stream into the binary
// form spec §6.5 describes.
func EncodeEvents(events []nspc.EventEntry) []byte {
	e := &encoder{}
	e.uvarint(uint64(len(events)))
	for _, entry := range events {
		e.varint(int64(entry.ID))
		if entry.OriginalAddr != nil {
			e.byteVal(1)
			e.uvarint(uint64(*entry.OriginalAddr))
		} else {
			e.byteVal(0)
		}
		encodeEvent(e, entry.Event)
	}
	return e.buf.Bytes()
}

func encodeEvent(e *encoder, ev nspc.NspcEvent) {
	switch v := ev.(type) {
	case nspc.Duration:
		e.byteVal(byte(tagDuration))
		e.uvarint(uint64(v.Ticks))
		if v.Quantization != nil || v.Velocity != nil {
			e.byteVal(1)
			q, vel := 0, 0
			if v.Quantization != nil {
				q = *v.Quantization
			}
			if v.Velocity != nil {
				vel = *v.Velocity
			}
			e.uvarint(uint64(q))
			e.uvarint(uint64(vel))
		} else {
			e.byteVal(0)
		}
	case nspc.Note:
		e.byteVal(byte(tagNote))
		e.uvarint(uint64(v.Pitch))
	case nspc.Tie:
		e.byteVal(byte(tagTie))
	case nspc.Rest:
		e.byteVal(byte(tagRest))
	case nspc.Percussion:
		e.byteVal(byte(tagPercussion))
		e.uvarint(uint64(v.Index))
	case nspc.End:
		e.byteVal(byte(tagEnd))
	case nspc.Vcmd:
		e.byteVal(byte(tagVcmd))
		encodeVcmd(e, v.Payload)
	}
}

func encodeVcmd(e *encoder, v nspc.VcmdPayload) {
	if ext, ok := v.(nspc.VcmdExtension); ok {
		e.uvarint(vcmdExtensionTag)
		e.byteVal(ext.ID)
		e.byteVal(byte(len(ext.Params)))
		e.bytes(ext.Params)
		return
	}

	e.uvarint(uint64(v.VcmdID()))
	switch p := v.(type) {
	case nspc.VcmdInst:
		e.byteVal(p.InstrumentIndex)
	case nspc.VcmdPanning:
		e.byteVal(p.Pan)
	case nspc.VcmdPanFade:
		e.byteVal(p.Time)
		e.byteVal(p.Target)
	case nspc.VcmdVibratoOn:
		e.byteVal(p.Delay)
		e.byteVal(p.Rate)
		e.byteVal(p.Depth)
	case nspc.VcmdVibratoOff:
	case nspc.VcmdGlobalVolume:
		e.byteVal(p.Volume)
	case nspc.VcmdGlobalVolumeFade:
		e.byteVal(p.Time)
		e.byteVal(p.Target)
	case nspc.VcmdTempo:
		e.byteVal(p.Tempo)
	case nspc.VcmdTempoFade:
		e.byteVal(p.Time)
		e.byteVal(p.Target)
	case nspc.VcmdGlobalTranspose:
		e.varint(int64(p.Semitones))
	case nspc.VcmdPerVoiceTranspose:
		e.varint(int64(p.Semitones))
	case nspc.VcmdTremoloOn:
		e.byteVal(p.Delay)
		e.byteVal(p.Rate)
		e.byteVal(p.Depth)
	case nspc.VcmdTremoloOff:
	case nspc.VcmdVolume:
		e.byteVal(p.Volume)
	case nspc.VcmdVolumeFade:
		e.byteVal(p.Time)
		e.byteVal(p.Target)
	case nspc.VcmdSubroutineCall:
		e.uvarint(uint64(uint32(p.SubroutineID)))
		e.uvarint(uint64(p.OriginalAddr))
		e.uvarint(uint64(p.Count))
	case nspc.VcmdVibratoFadeIn:
		e.byteVal(p.Time)
	case nspc.VcmdPitchEnvelopeTo:
		e.byteVal(p.Delay)
		e.byteVal(p.Length)
		e.byteVal(p.Semitone)
	case nspc.VcmdPitchEnvelopeFrom:
		e.byteVal(p.Delay)
		e.byteVal(p.Length)
		e.byteVal(p.Semitone)
	case nspc.VcmdPitchEnvelopeOff:
	case nspc.VcmdFineTune:
		e.varint(int64(p.Amount))
	case nspc.VcmdEchoOn:
		e.byteVal(p.ChannelMask)
		e.byteVal(p.VolumeLeft)
		e.byteVal(p.VolumeRight)
	case nspc.VcmdEchoOff:
	case nspc.VcmdEchoParams:
		e.byteVal(p.Delay)
		e.byteVal(p.Feedback)
		e.byteVal(p.FirIndex)
	case nspc.VcmdEchoVolumeFade:
		e.byteVal(p.Time)
		e.byteVal(p.TargetLeft)
		e.byteVal(p.TargetRight)
	case nspc.VcmdPitchSlideToNote:
		e.byteVal(p.Delay)
		e.byteVal(p.Length)
		e.byteVal(p.Note)
	case nspc.VcmdPercussionBaseInstrument:
		e.byteVal(p.BaseIndex)
	case nspc.VcmdNOP:
		e.uvarint(uint64(p.Raw))
	case nspc.VcmdMuteChannel:
	case nspc.VcmdFastForwardOn:
	case nspc.VcmdFastForwardOff:
	case nspc.VcmdUnused:
	}
}

// DecodeEvents unpacks the binary form EncodeEvents produces. object
// names the caller's context for any error.
func DecodeEvents(object string, data []byte) ([]nspc.EventEntry, error) {
	d := &decoder{r: bytes.NewReader(data)}

	count, err := d.uvarint(object)
	if err != nil {
		return nil, err
	}

	out := make([]nspc.EventEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := d.varint(object)
		if err != nil {
			return nil, err
		}
		hasAddr, err := d.byteVal(object)
		if err != nil {
			return nil, err
		}
		var addr *uint16
		if hasAddr != 0 {
			a, err := d.uvarint(object)
			if err != nil {
				return nil, err
			}
			v := uint16(a)
			addr = &v
		}
		ev, err := decodeEvent(d, object)
		if err != nil {
			return nil, err
		}
		out = append(out, nspc.EventEntry{ID: nspc.EventID(id), Event: ev, OriginalAddr: addr})
	}
	return out, nil
}

func decodeEvent(d *decoder, object string) (nspc.NspcEvent, error) {
	tagByte, err := d.byteVal(object)
	if err != nil {
		return nil, err
	}

	switch eventTag(tagByte) {
	case tagDuration:
		ticks, err := d.uvarint(object)
		if err != nil {
			return nil, err
		}
		hasQV, err := d.byteVal(object)
		if err != nil {
			return nil, err
		}
		dur := nspc.Duration{Ticks: int(ticks)}
		if hasQV != 0 {
			q, err := d.uvarint(object)
			if err != nil {
				return nil, err
			}
			v, err := d.uvarint(object)
			if err != nil {
				return nil, err
			}
			qi, vi := int(q), int(v)
			dur.Quantization = &qi
			dur.Velocity = &vi
		}
		return dur, nil
	case tagNote:
		p, err := d.uvarint(object)
		if err != nil {
			return nil, err
		}
		return nspc.Note{Pitch: int(p)}, nil
	case tagTie:
		return nspc.Tie{}, nil
	case tagRest:
		return nspc.Rest{}, nil
	case tagPercussion:
		idx, err := d.uvarint(object)
		if err != nil {
			return nil, err
		}
		return nspc.Percussion{Index: int(idx)}, nil
	case tagEnd:
		return nspc.End{}, nil
	case tagVcmd:
		return decodeVcmd(d, object)
	default:
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "unknown event tag %d", tagByte)
	}
}

func decodeVcmd(d *decoder, object string) (nspc.Vcmd, error) {
	id, err := d.uvarint(object)
	if err != nil {
		return nspc.Vcmd{}, err
	}

	if id == vcmdExtensionTag {
		extID, err := d.byteVal(object)
		if err != nil {
			return nspc.Vcmd{}, err
		}
		n, err := d.byteVal(object)
		if err != nil {
			return nspc.Vcmd{}, err
		}
		params, err := d.bytesN(object, int(n))
		if err != nil {
			return nspc.Vcmd{}, err
		}
		return nspc.Vcmd{Payload: nspc.VcmdExtension{ID: extID, Params: params}}, nil
	}

	b8 := func() (byte, error) { return d.byteVal(object) }
	u := func() (uint64, error) { return d.uvarint(object) }
	s := func() (int64, error) { return d.varint(object) }

	switch byte(id) {
	case nspc.VcmdIDInst:
		v, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdInst{InstrumentIndex: v}}, err
	case nspc.VcmdIDPanning:
		v, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdPanning{Pan: v}}, err
	case nspc.VcmdIDPanFade:
		t, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		tg, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdPanFade{Time: t, Target: tg}}, err
	case nspc.VcmdIDVibratoOn:
		delay, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		rate, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		depth, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdVibratoOn{Delay: delay, Rate: rate, Depth: depth}}, err
	case nspc.VcmdIDVibratoOff:
		return nspc.Vcmd{Payload: nspc.VcmdVibratoOff{}}, nil
	case nspc.VcmdIDGlobalVolume:
		v, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdGlobalVolume{Volume: v}}, err
	case nspc.VcmdIDGlobalVolumeFade:
		t, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		tg, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdGlobalVolumeFade{Time: t, Target: tg}}, err
	case nspc.VcmdIDTempo:
		v, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdTempo{Tempo: v}}, err
	case nspc.VcmdIDTempoFade:
		t, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		tg, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdTempoFade{Time: t, Target: tg}}, err
	case nspc.VcmdIDGlobalTranspose:
		v, err := s()
		return nspc.Vcmd{Payload: nspc.VcmdGlobalTranspose{Semitones: int8(v)}}, err
	case nspc.VcmdIDPerVoiceTranspose:
		v, err := s()
		return nspc.Vcmd{Payload: nspc.VcmdPerVoiceTranspose{Semitones: int8(v)}}, err
	case nspc.VcmdIDTremoloOn:
		delay, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		rate, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		depth, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdTremoloOn{Delay: delay, Rate: rate, Depth: depth}}, err
	case nspc.VcmdIDTremoloOff:
		return nspc.Vcmd{Payload: nspc.VcmdTremoloOff{}}, nil
	case nspc.VcmdIDVolume:
		v, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdVolume{Volume: v}}, err
	case nspc.VcmdIDVolumeFade:
		t, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		tg, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdVolumeFade{Time: t, Target: tg}}, err
	case nspc.VcmdIDSubroutineCall:
		subID, err := u()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		addr, err := u()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		count, err := u()
		return nspc.Vcmd{Payload: nspc.VcmdSubroutineCall{SubroutineID: int(subID), OriginalAddr: uint16(addr), Count: int(count)}}, err
	case nspc.VcmdIDVibratoFadeIn:
		v, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdVibratoFadeIn{Time: v}}, err
	case nspc.VcmdIDPitchEnvelopeTo:
		delay, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		length, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		semi, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdPitchEnvelopeTo{Delay: delay, Length: length, Semitone: semi}}, err
	case nspc.VcmdIDPitchEnvelopeFrom:
		delay, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		length, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		semi, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdPitchEnvelopeFrom{Delay: delay, Length: length, Semitone: semi}}, err
	case nspc.VcmdIDPitchEnvelopeOff:
		return nspc.Vcmd{Payload: nspc.VcmdPitchEnvelopeOff{}}, nil
	case nspc.VcmdIDFineTune:
		v, err := s()
		return nspc.Vcmd{Payload: nspc.VcmdFineTune{Amount: int8(v)}}, err
	case nspc.VcmdIDEchoOn:
		mask, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		vl, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		vr, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdEchoOn{ChannelMask: mask, VolumeLeft: vl, VolumeRight: vr}}, err
	case nspc.VcmdIDEchoOff:
		return nspc.Vcmd{Payload: nspc.VcmdEchoOff{}}, nil
	case nspc.VcmdIDEchoParams:
		delay, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		fb, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		fir, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdEchoParams{Delay: delay, Feedback: fb, FirIndex: fir}}, err
	case nspc.VcmdIDEchoVolumeFade:
		t, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		tl, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		tr, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdEchoVolumeFade{Time: t, TargetLeft: tl, TargetRight: tr}}, err
	case nspc.VcmdIDPitchSlideToNote:
		delay, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		length, err := b8()
		if err != nil {
			return nspc.Vcmd{}, err
		}
		note, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdPitchSlideToNote{Delay: delay, Length: length, Note: note}}, err
	case nspc.VcmdIDPercussionBaseInstrument:
		v, err := b8()
		return nspc.Vcmd{Payload: nspc.VcmdPercussionBaseInstrument{BaseIndex: v}}, err
	case nspc.VcmdIDNOP:
		v, err := u()
		return nspc.Vcmd{Payload: nspc.VcmdNOP{Raw: uint16(v)}}, err
	case nspc.VcmdIDMuteChannel:
		return nspc.Vcmd{Payload: nspc.VcmdMuteChannel{}}, nil
	case nspc.VcmdIDFastForwardOn:
		return nspc.Vcmd{Payload: nspc.VcmdFastForwardOn{}}, nil
	case nspc.VcmdIDFastForwardOff:
		return nspc.Vcmd{Payload: nspc.VcmdFastForwardOff{}}, nil
	case nspc.VcmdIDUnused:
		return nspc.Vcmd{Payload: nspc.VcmdUnused{}}, nil
	default:
		return nspc.Vcmd{}, ntrakerr.New(ntrakerr.InvalidInput, object, "unknown canonical vcmd id %d", id)
	}
}
