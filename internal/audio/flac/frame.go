package flac

import "fmt"

var blockSizeTable = [16]uint32{
	0, 192, 576, 1152, 2304, 4608, 0, 0,
	256, 512, 1024, 2048, 4096, 8192, 16384, 32768,
}

var sampleRateTable = [16]uint32{
	0, 88200, 176400, 192000, 8000, 16000, 22050, 24000,
	32000, 44100, 48000, 96000, 0, 0, 0, 0,
}

type frameHeader struct {
	blockSize         uint32
	sampleRate        uint32
	channelAssignment uint8
	bitsPerSample     uint8
	channelCount      uint8
}

// decodeFrame decodes one frame starting at d.pos, appending its
// samples (converted to 16-bit, interleaved) to d.pending.
func (d *Decoder) decodeFrame() error {
	if d.pos >= len(d.data) {
		return fmt.Errorf("flac: at end of stream")
	}
	headerStart := d.pos
	r := newBitReader(d.data[d.pos:])

	sync, err := r.readBits(14)
	if err != nil || sync != 0x3FFE {
		return fmt.Errorf("flac: bad frame sync")
	}
	if _, err := r.readBits(1); err != nil { // reserved
		return err
	}
	variableBlocking, err := r.readBits(1)
	if err != nil {
		return err
	}
	blockSizeCode, err := r.readBits(4)
	if err != nil {
		return err
	}
	sampleRateCode, err := r.readBits(4)
	if err != nil {
		return err
	}
	channelAssignment, err := r.readBits(4)
	if err != nil {
		return err
	}
	sampleSizeCode, err := r.readBits(3)
	if err != nil {
		return err
	}
	if _, err := r.readBits(1); err != nil { // reserved
		return err
	}

	if _, err := r.readUTF8Like(); err != nil { // frame/sample number; value unused
		return err
	}

	var blockSize uint32
	switch blockSizeCode {
	case 6:
		v, err := r.readBits(8)
		if err != nil {
			return err
		}
		blockSize = v + 1
	case 7:
		v, err := r.readBits(16)
		if err != nil {
			return err
		}
		blockSize = v + 1
	default:
		blockSize = blockSizeTable[blockSizeCode]
	}
	if blockSize == 0 {
		return fmt.Errorf("flac: reserved block size code %d", blockSizeCode)
	}

	var sampleRate uint32
	switch sampleRateCode {
	case 0:
		sampleRate = d.info.sampleRate
	case 12:
		v, err := r.readBits(8)
		if err != nil {
			return err
		}
		sampleRate = v * 1000
	case 13:
		v, err := r.readBits(16)
		if err != nil {
			return err
		}
		sampleRate = v
	case 14:
		v, err := r.readBits(16)
		if err != nil {
			return err
		}
		sampleRate = v * 10
	default:
		sampleRate = sampleRateTable[sampleRateCode]
	}

	var bitsPerSample uint8
	switch sampleSizeCode {
	case 0:
		bitsPerSample = d.info.bitsPerSample
	case 1:
		bitsPerSample = 8
	case 2:
		bitsPerSample = 12
	case 4:
		bitsPerSample = 16
	case 5:
		bitsPerSample = 20
	case 6:
		bitsPerSample = 24
	default:
		return fmt.Errorf("flac: reserved sample size code %d", sampleSizeCode)
	}

	var channelCount uint8
	if channelAssignment <= 7 {
		channelCount = channelAssignment + 1
	} else if channelAssignment <= 10 {
		channelCount = 2
	} else {
		return fmt.Errorf("flac: reserved channel assignment %d", channelAssignment)
	}

	headerBytes := r.bytePosition()
	if _, err := r.readBits(8); err != nil { // CRC-8, not enforced against malformed streams
		return err
	}
	_ = crc8(d.data[headerStart : headerStart+headerBytes])

	hdr := frameHeader{
		blockSize:         blockSize,
		sampleRate:        sampleRate,
		channelAssignment: uint8(channelAssignment),
		bitsPerSample:     bitsPerSample,
		channelCount:      channelCount,
	}

	channels := make([][]int32, channelCount)
	for ch := uint8(0); ch < channelCount; ch++ {
		subframeBits := hdr.bitsPerSample
		switch {
		case hdr.channelAssignment == 8 && ch == 1: // left/side: side carries +1 bit
			subframeBits++
		case hdr.channelAssignment == 9 && ch == 0: // side/right
			subframeBits++
		case hdr.channelAssignment == 10 && ch == 1: // mid/side
			subframeBits++
		}
		samples, err := decodeSubframe(r, int(hdr.blockSize), subframeBits)
		if err != nil {
			return err
		}
		channels[ch] = samples
	}

	r.alignToByte()
	d.pos += r.bytePosition()

	applyStereoDecorrelation(hdr.channelAssignment, channels)

	d.appendSamples(channels, hdr.bitsPerSample)
	return nil
}

func applyStereoDecorrelation(assignment uint8, channels [][]int32) {
	switch assignment {
	case 8: // left/side
		left, side := channels[0], channels[1]
		for i := range left {
			side[i] = left[i] - side[i]
		}
	case 9: // right/side
		side, right := channels[0], channels[1]
		for i := range right {
			side[i] = right[i] + side[i]
		}
		channels[0], channels[1] = side, right
	case 10: // mid/side
		mid, side := channels[0], channels[1]
		for i := range mid {
			m := mid[i]<<1 | (side[i] & 1)
			left := (m + side[i]) >> 1
			right := (m - side[i]) >> 1
			mid[i] = left
			side[i] = right
		}
	}
}

// appendSamples converts full-precision decoded samples to 16-bit
// output with correctly rounded bit-depth reduction and appends them,
// interleaved, to d.pending.
func (d *Decoder) appendSamples(channels [][]int32, bitsPerSample uint8) {
	if len(channels) == 0 {
		return
	}
	n := len(channels[0])
	for i := 0; i < n; i++ {
		for _, ch := range channels {
			d.pending = append(d.pending, scaleTo16(ch[i], bitsPerSample))
		}
	}
}

func scaleTo16(sample int32, bitsPerSample uint8) int16 {
	if bitsPerSample <= 16 {
		return int16(sample)
	}
	shift := bitsPerSample - 16
	sample += 1 << (shift - 1)
	sample >>= shift
	if sample > 32767 {
		sample = 32767
	} else if sample < -32768 {
		sample = -32768
	}
	return int16(sample)
}
