package aiff

import "wavepod/internal/audio"

func init() {
	audio.RegisterFormat(audio.FormatAIFF, func(data []byte) (audio.Decoder, error) {
		return Open(data)
	})
}
