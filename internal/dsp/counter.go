package dsp

// counterRate and counterOffset are the published period/offset tables
// indexed 0..31 that gate envelope and echo-unrelated periodic events;
// transcribed from original_source/counter.cpp. Index 0 never fires
// (counterPoll treats rate 0 as "never").
var counterRate = [32]int{
	0, 2048, 1536,
	1280, 1024, 768,
	640, 512, 384,
	320, 256, 192,
	160, 128, 96,
	80, 64, 48,
	40, 32, 24,
	20, 16, 12,
	10, 8, 6,
	5, 4, 3,
	2,
	1,
}

var counterOffset = [32]int{
	0, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	536, 0, 1040,
	0,
	0,
}

// counterTick advances the shared 15-bit rate counter, wrapping at
// 2048*5*3 = 30720 (0x7800), matching spec §3.2's period requirement
// that survives a reset-with-preserve-RAM.
func (d *DSP) counterTick() {
	if d.clock.counter == 0 {
		d.clock.counter = 2048 * 5 * 3
	}
	d.clock.counter--
}

// counterPoll reports whether rate is due to fire this sample.
func (d *DSP) counterPoll(rate int) bool {
	if rate == 0 {
		return false
	}
	return (d.clock.counter+counterOffset[rate])%counterRate[rate] == 0
}
