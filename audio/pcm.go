// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/ik5/audmgr/utils"
)

// PCMSource turns raw interleaved bytes of a known Format into a
// SampleSource.
type PCMSource struct {
	r      io.Reader
	format Format
	buf    []byte
}

func NewPCMSource(r io.Reader, format Format) *PCMSource {
	return &PCMSource{
		r:      r,
		format: format,
		buf:    make([]byte, 4096),
	}
}

func (s *PCMSource) SampleRate() int { return s.format.SampleRate }
func (s *PCMSource) Channels() int   { return s.format.Channels.Count() }
func (s *PCMSource) BufSize() int    { return cap(s.buf) / max(s.format.Type.Size(), 1) }

func (s *PCMSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("%w", err)
		}
	}
	return nil
}

func (s *PCMSource) ReadSamples(dst []float32) (int, error) {
	size := s.format.Type.Size()
	if size == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.format.Type)
	}
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst) * size
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.r, s.buf)
	samples := n / size
	for i := range samples {
		dst[i] = decodeSample(s.buf[i*size:(i+1)*size], s.format.Type)
	}

	switch {
	case err == nil:
		return samples, nil
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		if samples == 0 {
			return 0, io.EOF
		}
		return samples, nil
	default:
		return samples, fmt.Errorf("%w", err)
	}
}

func decodeSample(b []byte, typ SampleType) float32 {
	switch typ {
	case UInt8:
		return utils.UInt8ToFloat32(b[0])
	case Int16:
		return utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(b)))
	case Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case Mulaw:
		return utils.Int16ToFloat32(utils.MulawToInt16(b[0]))
	default:
		return 0
	}
}

// PCMReader renders a SampleSource as signed 16-bit little-endian bytes.
type PCMReader struct {
	src SampleSource
	tmp []float32
}

func NewPCMReader(src SampleSource) *PCMReader {
	return &PCMReader{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (r *PCMReader) Read(p []byte) (int, error) {
	// Whole frames only so channels stay aligned across calls.
	frameBytes := 2 * r.src.Channels()
	samples := (len(p) / frameBytes) * r.src.Channels()
	if samples == 0 {
		return 0, io.ErrShortBuffer
	}
	if cap(r.tmp) < samples {
		r.tmp = make([]float32, samples)
	}

	n, err := r.src.ReadSamples(r.tmp[:samples])
	for i := range n {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(utils.Float32ToInt16(r.tmp[i])))
	}
	if n == 0 && err == nil {
		err = io.EOF
	}
	return 2 * n, err
}
