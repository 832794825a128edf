package flac

import "fmt"

// decodeResidual decodes the Rice-partitioned residual following a
// subframe's warm-up samples, returning blockSize-predictorOrder values.
func decodeResidual(r *bitReader, blockSize, predictorOrder int) ([]int32, error) {
	method, err := r.readBits(2)
	if err != nil {
		return nil, err
	}
	var paramBits int
	var escapeCode uint32
	switch method {
	case 0:
		paramBits = 4
		escapeCode = 0xF
	case 1:
		paramBits = 5
		escapeCode = 0x1F
	default:
		return nil, fmt.Errorf("flac: reserved residual coding method %d", method)
	}

	partitionOrder, err := r.readBits(4)
	if err != nil {
		return nil, err
	}
	partitionCount := 1 << partitionOrder
	if blockSize%partitionCount != 0 {
		return nil, fmt.Errorf("flac: block size %d not divisible by %d partitions", blockSize, partitionCount)
	}
	samplesPerPartition := blockSize / partitionCount

	residual := make([]int32, 0, blockSize-predictorOrder)
	for p := 0; p < partitionCount; p++ {
		count := samplesPerPartition
		if p == 0 {
			count -= predictorOrder
		}
		param, err := r.readBits(paramBits)
		if err != nil {
			return nil, err
		}
		if param == escapeCode {
			rawBits, err := r.readBits(5)
			if err != nil {
				return nil, err
			}
			for i := 0; i < count; i++ {
				v, err := r.readSigned(int(rawBits))
				if err != nil {
					return nil, err
				}
				residual = append(residual, v)
			}
			continue
		}
		for i := 0; i < count; i++ {
			v, err := decodeRiceValue(r, param)
			if err != nil {
				return nil, err
			}
			residual = append(residual, v)
		}
	}
	return residual, nil
}

// decodeRiceValue decodes one Rice/Golomb-coded residual value: a unary
// quotient followed by a k-bit binary remainder, folded back to signed
// via the standard even/odd zigzag mapping.
func decodeRiceValue(r *bitReader, k uint32) (int32, error) {
	quotient, err := r.readUnary()
	if err != nil {
		return 0, err
	}
	remainder, err := r.readBits(int(k))
	if err != nil {
		return 0, err
	}
	folded := quotient<<k | remainder
	if folded&1 == 0 {
		return int32(folded >> 1), nil
	}
	return -int32((folded + 1) >> 1), nil
}
