package imageutil

import (
	"bufio"
	"encoding/binary"
	"io"
)

const (
	markerSOS  = 0xDA
	markerEOI  = 0xD9
	markerAPP1 = 0xE1
	tagOrient  = 0x0112
)

// exifOrientation returns the EXIF orientation of a JPEG stream, 1 when
// the stream carries none.
func exifOrientation(r io.Reader) int {
	br := bufio.NewReader(r)
	var soi [2]byte
	if _, err := io.ReadFull(br, soi[:]); err != nil || soi != [2]byte{0xFF, 0xD8} {
		return 1
	}
	for {
		b, err := br.ReadByte()
		if err != nil || b != 0xFF {
			return 1
		}
		marker := byte(0xFF)
		for marker == 0xFF {
			if marker, err = br.ReadByte(); err != nil {
				return 1
			}
		}
		switch {
		case marker == 0x01, marker >= 0xD0 && marker <= 0xD8:
			continue
		case marker == markerSOS, marker == markerEOI:
			return 1
		}

		var size [2]byte
		if _, err := io.ReadFull(br, size[:]); err != nil {
			return 1
		}
		n := int(binary.BigEndian.Uint16(size[:])) - 2
		if n < 0 {
			return 1
		}
		if marker != markerAPP1 {
			if _, err := br.Discard(n); err != nil {
				return 1
			}
			continue
		}
		seg := make([]byte, n)
		if _, err := io.ReadFull(br, seg); err != nil {
			return 1
		}
		if o := orientationFromExif(seg); o != 0 {
			return o
		}
	}
}

// orientationFromExif reads tag 0x0112 from IFD0 of an APP1 payload.
func orientationFromExif(seg []byte) int {
	if len(seg) < 14 || string(seg[:6]) != "Exif\x00\x00" {
		return 0
	}
	tiff := seg[6:]
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return 0
	}
	off := int(order.Uint32(tiff[4:8]))
	if off < 8 || off+2 > len(tiff) {
		return 0
	}
	count := int(order.Uint16(tiff[off:]))
	for i := 0; i < count; i++ {
		entry := off + 2 + i*12
		if entry+12 > len(tiff) {
			return 0
		}
		if order.Uint16(tiff[entry:]) != tagOrient {
			continue
		}
		v := int(order.Uint16(tiff[entry+8:]))
		if v < 1 || v > 8 {
			return 0
		}
		return v
	}
	return 0
}

// transposed reports whether orientation swaps width and height.
func transposed(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}
