// Package imagemeta sniffs PNG and JPEG pixel dimensions directly from
// the encoded bytes, without decoding the image. It exists so the
// render engine never needs a full imaging dependency just to report
// width/height on its own screenshot output.
package imagemeta

import (
	"encoding/binary"

	"github.com/cyw0ng95/v2e/pkg/common"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Dimensions returns the pixel width and height encoded in a PNG or
// JPEG byte stream, dispatching on signature. Malformed or unrecognized
// input yields (0, 0) and a logged warning rather than an error: image
// delivery must never fail because its own dimensions couldn't be
// sniffed.
func Dimensions(data []byte) (width, height int) {
	if isPNG(data) {
		return pngDimensions(data)
	}
	if isJPEG(data) {
		return jpegDimensions(data)
	}
	common.Warn("imagemeta: unrecognized image signature, returning (0,0)")
	return 0, 0
}

func isPNG(data []byte) bool {
	if len(data) < len(pngSignature) {
		return false
	}
	for i, b := range pngSignature {
		if data[i] != b {
			return false
		}
	}
	return true
}

// pngDimensions reads the IHDR chunk's width/height fields directly.
// The IHDR chunk always immediately follows the 8-byte signature as:
// 4-byte length, 4-byte "IHDR" tag, 4-byte width, 4-byte height — so
// width starts at offset 16 and height at offset 20, each big-endian
// uint32.
func pngDimensions(data []byte) (width, height int) {
	const ihdrWidthOffset = 16
	if len(data) < ihdrWidthOffset+8 {
		common.Warn("imagemeta: PNG data truncated before IHDR dimensions")
		return 0, 0
	}
	w := binary.BigEndian.Uint32(data[ihdrWidthOffset : ihdrWidthOffset+4])
	h := binary.BigEndian.Uint32(data[ihdrWidthOffset+4 : ihdrWidthOffset+8])
	return int(w), int(h)
}

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

// sofMarkers are the start-of-frame markers carrying dimension data.
// FFC0/FFC1/FFC2 are the baseline/extended-sequential/progressive SOF
// variants; any other marker starting FFC_ is a different frame type
// this parser does not need to special-case for dimension extraction.
var sofMarkers = map[byte]bool{0xC0: true, 0xC1: true, 0xC2: true}

// jpegDimensions walks the marker segments following the SOI, reading
// the first SOF0/1/2 segment's height/width fields. JPEG stores
// dimensions as precision byte, then height, then width — the reverse
// order from PNG.
func jpegDimensions(data []byte) (width, height int) {
	i := 2 // skip SOI
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			// Not a marker boundary; bail rather than scan byte-by-byte
			// into possibly entropy-coded scan data.
			break
		}
		marker := data[i+1]
		if marker == 0xD8 || marker == 0xD9 {
			i += 2
			continue
		}
		// Markers without a length field (RSTn, TEM, and the stuffing
		// byte 0x00 / fill bytes 0xFF) aren't expected this early but
		// are skipped defensively.
		if marker == 0xFF {
			// fill byte: advance one byte onto the next 0xFF
			i++
			continue
		}
		if marker == 0x00 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}

		segmentLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if segmentLen < 2 || i+2+segmentLen > len(data) {
			common.Warn("imagemeta: JPEG segment length out of range")
			return 0, 0
		}

		if sofMarkers[marker] {
			// segment payload: 1 byte precision, 2 bytes height, 2 bytes width
			payload := data[i+4 : i+2+segmentLen]
			if len(payload) < 5 {
				common.Warn("imagemeta: JPEG SOF segment too short")
				return 0, 0
			}
			h := binary.BigEndian.Uint16(payload[1:3])
			w := binary.BigEndian.Uint16(payload[3:5])
			return int(w), int(h)
		}

		i += 2 + segmentLen
	}
	common.Warn("imagemeta: no SOF marker found in JPEG stream")
	return 0, 0
}
