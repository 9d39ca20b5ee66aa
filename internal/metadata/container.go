package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	rafMagic         = "FUJIFILMCCD-RAW "
	rafJPEGOffsetAt  = 84
	rafJPEGLengthAt  = 88
	rafMinimumHeader = rafJPEGLengthAt + 4
	tiffHeaderLength = 4
)

// Vendor TIFF variants that only differ from plain TIFF in the magic number.
var tiffVariants = map[string]string{
	"IIRO":    "II*\x00", // Olympus ORF
	"IIRS":    "II*\x00", // Olympus ORF
	"MMOR":    "MM\x00*", // Olympus ORF, big endian
	"IIU\x00": "II*\x00", // Panasonic RW2
}

// containerReader returns a reader exif.Decode understands for raw. Olympus
// and Panasonic headers are rewritten to plain TIFF; Fujifilm RAF yields its
// embedded EXIF JPEG.
func containerReader(raw []byte) (io.Reader, error) {
	if len(raw) >= tiffHeaderLength {
		if header, ok := tiffVariants[string(raw[:tiffHeaderLength])]; ok {
			return io.MultiReader(bytes.NewReader([]byte(header)), bytes.NewReader(raw[tiffHeaderLength:])), nil
		}
	}
	if bytes.HasPrefix(raw, []byte(rafMagic)) {
		jpeg, err := rafPreview(raw)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(jpeg), nil
	}
	return bytes.NewReader(raw), nil
}

func rafPreview(raw []byte) ([]byte, error) {
	if len(raw) < rafMinimumHeader {
		return nil, fmt.Errorf("%w: truncated RAF header", ErrUnsupportedContainer)
	}
	offset := uint64(binary.BigEndian.Uint32(raw[rafJPEGOffsetAt:]))
	length := uint64(binary.BigEndian.Uint32(raw[rafJPEGLengthAt:]))
	if length == 0 || offset+length > uint64(len(raw)) {
		return nil, fmt.Errorf("%w: RAF preview out of range", ErrUnsupportedContainer)
	}
	return raw[offset : offset+length], nil
}
