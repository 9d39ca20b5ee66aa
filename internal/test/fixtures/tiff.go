// Package fixtures builds raw and preview inputs for tests.
package fixtures

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// TIFF tag IDs used by tests.
const (
	TagModel            uint16 = 0x0110
	TagDateTime         uint16 = 0x0132
	TagDateTimeOriginal uint16 = 0x9003
)

// ASCIITag is one ASCII entry of IFD0.
type ASCIITag struct {
	Tag   uint16
	Value string
}

// TIFF builds a little-endian TIFF container whose IFD0 holds the given ASCII
// tags. It is the layout NEF, CR2, ARW and DNG files share.
func TIFF(tags ...ASCIITag) []byte {
	sorted := append([]ASCIITag(nil), tags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tag < sorted[j].Tag })

	le := binary.LittleEndian
	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, le, uint16(42))
	_ = binary.Write(&buf, le, uint32(8))

	dataOffset := uint32(8 + 2 + 12*len(sorted) + 4)
	var data bytes.Buffer
	_ = binary.Write(&buf, le, uint16(len(sorted)))
	for _, e := range sorted {
		value := append([]byte(e.Value), 0)
		_ = binary.Write(&buf, le, e.Tag)
		_ = binary.Write(&buf, le, uint16(2))
		_ = binary.Write(&buf, le, uint32(len(value)))
		if len(value) <= 4 {
			var inline [4]byte
			copy(inline[:], value)
			buf.Write(inline[:])
			continue
		}
		_ = binary.Write(&buf, le, dataOffset+uint32(data.Len()))
		data.Write(value)
	}
	_ = binary.Write(&buf, le, uint32(0))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

// Raw returns a minimal camera raw container with a model and capture time
// in the "2006:01:02 15:04:05" form.
func Raw(model, captured string) []byte {
	return TIFF(
		ASCIITag{Tag: TagModel, Value: model},
		ASCIITag{Tag: TagDateTime, Value: captured},
	)
}

// JPEG is a byte slice that content sniffing reports as image/jpeg.
var JPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0xFF, 0xD9}

// WithMagic returns a copy of a TIFF container whose 4-byte header is
// replaced, as Olympus ("IIRO") and Panasonic ("IIU\x00") files do.
func WithMagic(tiff []byte, magic string) []byte {
	out := append([]byte(nil), tiff...)
	copy(out, magic)
	return out
}

// EXIFJPEG wraps a TIFF container in the APP1 segment of a minimal JPEG.
func EXIFJPEG(tiff []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(2+6+len(tiff)))
	buf.WriteString("Exif\x00\x00")
	buf.Write(tiff)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

// RAF builds a Fujifilm raw whose header points at the embedded jpeg.
func RAF(jpeg []byte) []byte {
	const jpegOffset = 100
	header := make([]byte, jpegOffset)
	copy(header, "FUJIFILMCCD-RAW 0201FF383501")
	binary.BigEndian.PutUint32(header[84:], jpegOffset)
	binary.BigEndian.PutUint32(header[88:], uint32(len(jpeg)))
	return append(header, jpeg...)
}
