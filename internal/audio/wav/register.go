package wav

import "wavepod/internal/audio"

func init() {
	audio.RegisterFormat(audio.FormatWAV, func(data []byte) (audio.Decoder, error) {
		return Open(data)
	})
}
