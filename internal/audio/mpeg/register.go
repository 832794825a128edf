package mpeg

import "wavepod/internal/audio"

func init() {
	audio.RegisterFormat(audio.FormatMPEGLayer3, func(data []byte) (audio.Decoder, error) {
		return Open(data)
	})
}
