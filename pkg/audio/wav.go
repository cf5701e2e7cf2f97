package audio

import (
	"encoding/binary"
	"errors"
	"time"
)

var errNotWav = errors.New("not a RIFF/WAVE file")

// WavDuration computes a WAV clip's play time by walking its RIFF chunks:
// duration = data chunk size / fmt chunk byte rate. Streams transcoded to
// 16 kHz mono PCM upstream always carry both chunks.
func WavDuration(wav []byte) (time.Duration, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return 0, errNotWav
	}

	var (
		byteRate uint32
		dataSize uint32
	)

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(wav[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if int(chunkSize) < 16 || body+16 > len(wav) {
				return 0, errors.New("malformed fmt chunk")
			}
			// fmt layout: format(2) channels(2) sample rate(4) byte rate(4) ...
			byteRate = binary.LittleEndian.Uint32(wav[body+8 : body+12])
		case "data":
			dataSize = chunkSize
			// A streamed WAV may declare more data than is present.
			if remaining := len(wav) - body; int(dataSize) > remaining {
				dataSize = uint32(remaining)
			}
		}

		// Chunks are word-aligned.
		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if byteRate == 0 {
		return 0, errors.New("missing fmt chunk or zero byte rate")
	}
	if dataSize == 0 {
		return 0, errors.New("missing data chunk")
	}

	seconds := float64(dataSize) / float64(byteRate)
	return time.Duration(seconds * float64(time.Second)), nil
}
