package flac

import "wavepod/internal/audio"

func init() {
	audio.RegisterFormat(audio.FormatFLAC, func(data []byte) (audio.Decoder, error) {
		return Open(data)
	})
}
