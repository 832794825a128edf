package flac

import "fmt"

const (
	subframeConstant = iota
	subframeVerbatim
	subframeFixed
	subframeLPC
)

type subframeKind struct {
	kind  int
	order int
}

func classifySubframeType(code uint32) (subframeKind, error) {
	switch {
	case code == 0:
		return subframeKind{subframeConstant, 0}, nil
	case code == 1:
		return subframeKind{subframeVerbatim, 0}, nil
	case code >= 8 && code <= 12:
		return subframeKind{subframeFixed, int(code - 8)}, nil
	case code >= 32 && code <= 63:
		return subframeKind{subframeLPC, int(code-32) + 1}, nil
	default:
		return subframeKind{}, fmt.Errorf("flac: reserved subframe type code %d", code)
	}
}

// decodeSubframe decodes one channel's subframe into blockSize samples
// at full precision (before any output bit-depth scaling).
func decodeSubframe(r *bitReader, blockSize int, bitsPerSample uint8) ([]int32, error) {
	if _, err := r.readBits(1); err != nil { // zero bit padding
		return nil, err
	}
	typeCode, err := r.readBits(6)
	if err != nil {
		return nil, err
	}
	wastedFlag, err := r.readBits(1)
	if err != nil {
		return nil, err
	}
	var wasted int
	if wastedFlag == 1 {
		unary, err := r.readUnary()
		if err != nil {
			return nil, err
		}
		wasted = int(unary) + 1
	}
	sampleBits := int(bitsPerSample) - wasted

	kind, err := classifySubframeType(typeCode)
	if err != nil {
		return nil, err
	}

	var samples []int32
	switch kind.kind {
	case subframeConstant:
		v, err := r.readSigned(sampleBits)
		if err != nil {
			return nil, err
		}
		samples = make([]int32, blockSize)
		for i := range samples {
			samples[i] = v
		}

	case subframeVerbatim:
		samples = make([]int32, blockSize)
		for i := range samples {
			v, err := r.readSigned(sampleBits)
			if err != nil {
				return nil, err
			}
			samples[i] = v
		}

	case subframeFixed:
		samples, err = decodeFixedSubframe(r, blockSize, sampleBits, kind.order)
		if err != nil {
			return nil, err
		}

	case subframeLPC:
		samples, err = decodeLPCSubframe(r, blockSize, sampleBits, kind.order)
		if err != nil {
			return nil, err
		}
	}

	if wasted > 0 {
		for i := range samples {
			samples[i] <<= wasted
		}
	}
	return samples, nil
}

var fixedCoeffs = [5][]int32{
	{},
	{1},
	{2, -1},
	{3, -3, 1},
	{4, -6, 4, -1},
}

func decodeFixedSubframe(r *bitReader, blockSize, sampleBits, order int) ([]int32, error) {
	samples := make([]int32, blockSize)
	for i := 0; i < order; i++ {
		v, err := r.readSigned(sampleBits)
		if err != nil {
			return nil, err
		}
		samples[i] = v
	}
	residual, err := decodeResidual(r, blockSize, order)
	if err != nil {
		return nil, err
	}
	coeffs := fixedCoeffs[order]
	for i := order; i < blockSize; i++ {
		var pred int64
		for j, c := range coeffs {
			pred += int64(c) * int64(samples[i-1-j])
		}
		samples[i] = int32(pred) + residual[i-order]
	}
	return samples, nil
}

func decodeLPCSubframe(r *bitReader, blockSize, sampleBits, order int) ([]int32, error) {
	samples := make([]int32, blockSize)
	for i := 0; i < order; i++ {
		v, err := r.readSigned(sampleBits)
		if err != nil {
			return nil, err
		}
		samples[i] = v
	}
	precision, err := r.readBits(4)
	if err != nil {
		return nil, err
	}
	if precision == 0xF {
		return nil, fmt.Errorf("flac: invalid LPC coefficient precision escape")
	}
	precision++

	shift, err := r.readSigned(5)
	if err != nil {
		return nil, err
	}

	coeffs := make([]int32, order)
	for i := 0; i < order; i++ {
		c, err := r.readSigned(int(precision))
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	residual, err := decodeResidual(r, blockSize, order)
	if err != nil {
		return nil, err
	}

	for i := order; i < blockSize; i++ {
		var pred int64
		for j, c := range coeffs {
			pred += int64(c) * int64(samples[i-1-j])
		}
		if shift > 0 {
			pred >>= uint(shift)
		}
		samples[i] = int32(pred) + residual[i-order]
	}
	return samples, nil
}
