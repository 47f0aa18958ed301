package imagemeta

import (
	"encoding/binary"
	"testing"
)

// buildPNGHeader constructs just enough of a PNG byte stream (signature
// + IHDR chunk header/dimensions) for dimension sniffing; it is not a
// decodable image.
func buildPNGHeader(width, height uint32) []byte {
	buf := make([]byte, 24)
	copy(buf[0:8], pngSignature)
	binary.BigEndian.PutUint32(buf[8:12], 13) // IHDR chunk length
	copy(buf[12:16], []byte("IHDR"))
	binary.BigEndian.PutUint32(buf[16:20], width)
	binary.BigEndian.PutUint32(buf[20:24], height)
	return buf
}

// buildJPEGWithSOF0 constructs a minimal JPEG byte stream: SOI, then an
// SOF0 segment carrying the given dimensions.
func buildJPEGWithSOF0(width, height uint16) []byte {
	segment := make([]byte, 0, 9)
	segment = append(segment, 0xFF, 0xC0) // SOF0 marker
	payload := make([]byte, 7)
	binary.BigEndian.PutUint16(payload[0:2], 7) // segment length incl. itself
	payload[2] = 8                              // precision
	binary.BigEndian.PutUint16(payload[3:5], height)
	binary.BigEndian.PutUint16(payload[5:7], width)
	segment = append(segment, payload...)

	buf := []byte{0xFF, 0xD8}
	buf = append(buf, segment...)
	return buf
}

func TestDimensions_ValidPNG(t *testing.T) {
	data := buildPNGHeader(200, 150)
	w, h := Dimensions(data)
	if w != 200 || h != 150 {
		t.Errorf("Dimensions() = (%d,%d), want (200,150)", w, h)
	}
}

func TestDimensions_ValidJPEG(t *testing.T) {
	data := buildJPEGWithSOF0(320, 240)
	w, h := Dimensions(data)
	if w != 320 || h != 240 {
		t.Errorf("Dimensions() = (%d,%d), want (320,240)", w, h)
	}
}

func TestDimensions_MalformedInput(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		[]byte("not an image"),
		{0x89, 0x50, 0x4E}, // truncated PNG signature
		{0xFF, 0xD8},       // JPEG SOI with nothing after it
	}
	for _, data := range cases {
		w, h := Dimensions(data)
		if w != 0 || h != 0 {
			t.Errorf("Dimensions(%v) = (%d,%d), want (0,0)", data, w, h)
		}
	}
}

func TestDimensions_TruncatedPNGIHDR(t *testing.T) {
	data := buildPNGHeader(100, 100)[:20]
	w, h := Dimensions(data)
	if w != 0 || h != 0 {
		t.Errorf("Dimensions() = (%d,%d), want (0,0) for truncated IHDR", w, h)
	}
}

func TestDimensions_JPEGWithoutSOF(t *testing.T) {
	// SOI followed by an APP0 segment only, no SOF marker.
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x04, 0x00, 0x00}
	w, h := Dimensions(data)
	if w != 0 || h != 0 {
		t.Errorf("Dimensions() = (%d,%d), want (0,0) when no SOF present", w, h)
	}
}
