// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/formats/wav"
)

// Example_decoding writes a small WAV file and reads it back through the
// Factory and Decoder API.
func Example_decoding() {
	file := new(bytes.Buffer)
	if err := wav.WriteWAV16(file, 8000, 1, []int16{100, -100, 200, -200, 300, -300}); err != nil {
		fmt.Printf("write error: %v\n", err)
		return
	}

	dec, err := wav.Factory{}.CreateDecoder(bytes.NewReader(file.Bytes()))
	if err != nil {
		fmt.Printf("decode error: %v\n", err)
		return
	}
	defer dec.Close()

	fmt.Printf("Format: %s\n", audio.FormatOf(dec))
	fmt.Printf("Length: %d frames\n", dec.Length())

	buf := make([]byte, 4*2)
	total := 0
	for {
		n, err := dec.Read(buf, 4)
		total += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Printf("read error: %v\n", err)
			return
		}
	}
	fmt.Printf("Read %d frames, position %d\n", total, dec.Position())
	// Output:
	// Format: Signed 16-bit, Mono, 8000hz
	// Length: 6 frames
	// Read 6 frames, position 6
}

// Example_seek jumps to a frame and decodes from there.
func Example_seek() {
	file := new(bytes.Buffer)
	_ = wav.WriteWAV16(file, 8000, 2, []int16{1, -1, 2, -2, 3, -3, 4, -4})

	dec, err := wav.Factory{}.CreateDecoder(bytes.NewReader(file.Bytes()))
	if err != nil {
		fmt.Printf("decode error: %v\n", err)
		return
	}
	defer dec.Close()

	if err := dec.Seek(2); err != nil {
		fmt.Printf("seek error: %v\n", err)
		return
	}
	frame := make([]byte, 4)
	_, _ = dec.Read(frame, 1)
	left := int16(binary.LittleEndian.Uint16(frame[0:]))
	right := int16(binary.LittleEndian.Uint16(frame[2:]))
	fmt.Printf("Frame 2: %d, %d\n", left, right)

	err = dec.Seek(5)
	fmt.Printf("Seek past end: %t\n", errors.Is(err, wav.ErrSeekOutOfRange))
	// Output:
	// Frame 2: 3, -3
	// Seek past end: true
}

// Example_notWav shows a factory declining a stream it does not recognize,
// which lets a registry move on to the next factory.
func Example_notWav() {
	_, err := wav.Factory{}.CreateDecoder(bytes.NewReader([]byte("ID3\x03\x00\x00\x00\x00\x00\x00garbage")))
	fmt.Println(errors.Is(err, wav.ErrNotWavFile))
	// Output: true
}
