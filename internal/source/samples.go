package source

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
)

const (
	tagBitsPerSample = 258
	tagPhotometric   = 262

	photoWhiteIsZero = 0
	photoBlackIsZero = 1
)

// sampleLayout is the part of a TIFF header that decides how the decoder maps
// stored gray samples to pixel values.
type sampleLayout struct {
	bitsPerSample uint16
	photometric   uint16
}

// readSampleLayout reads BitsPerSample and PhotometricInterpretation from the
// first IFD. Missing tags take the values the decoder assumes for them.
func readSampleLayout(r io.ReaderAt) (sampleLayout, error) {
	l := sampleLayout{bitsPerSample: 1, photometric: photoWhiteIsZero}

	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return l, err
	}
	var bo binary.ByteOrder
	switch string(hdr[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return l, fmt.Errorf("not a TIFF header")
	}

	ifd := int64(bo.Uint32(hdr[4:]))
	var cnt [2]byte
	if _, err := r.ReadAt(cnt[:], ifd); err != nil {
		return l, err
	}
	n := int(bo.Uint16(cnt[:]))
	entries := make([]byte, 12*n)
	if _, err := r.ReadAt(entries, ifd+2); err != nil {
		return l, err
	}

	for i := 0; i < n; i++ {
		e := entries[12*i : 12*i+12]
		tag := bo.Uint16(e[0:2])
		if tag != tagBitsPerSample && tag != tagPhotometric {
			continue
		}
		v, err := firstShort(r, bo, bo.Uint16(e[2:4]), bo.Uint32(e[4:8]), e[8:12])
		if err != nil {
			return l, fmt.Errorf("tag %d: %w", tag, err)
		}
		if tag == tagBitsPerSample {
			l.bitsPerSample = v
		} else {
			l.photometric = v
		}
	}
	return l, nil
}

// firstShort returns the first value of a SHORT or LONG entry, following the
// value offset when the values do not fit in the entry.
func firstShort(r io.ReaderAt, bo binary.ByteOrder, typ uint16, count uint32, field []byte) (uint16, error) {
	var size uint32
	switch typ {
	case 3:
		size = 2
	case 4:
		size = 4
	default:
		return 0, fmt.Errorf("unexpected field type %d", typ)
	}
	if count == 0 {
		return 0, fmt.Errorf("empty field")
	}

	buf := field
	if size*count > 4 {
		buf = make([]byte, size)
		if _, err := r.ReadAt(buf, int64(bo.Uint32(field))); err != nil {
			return 0, err
		}
	}
	if size == 2 {
		return bo.Uint16(buf), nil
	}
	return uint16(bo.Uint32(buf)), nil
}

// restoreSamples undoes what the TIFF decoder does to gray images: sub-byte
// samples are scaled to 0..255 and WhiteIsZero samples are inverted. After it
// img holds the stored sample values (low byte for 16-bit samples).
func restoreSamples(img *image.Gray, l sampleLayout) {
	if l.photometric != photoWhiteIsZero && l.photometric != photoBlackIsZero {
		return
	}
	invert := l.photometric == photoWhiteIsZero
	step := uint8(1)
	if l.bitsPerSample > 0 && l.bitsPerSample < 8 {
		step = uint8(0xff / (1<<l.bitsPerSample - 1))
	}
	if !invert && step == 1 {
		return
	}
	for i, v := range img.Pix {
		if invert {
			v = 0xff - v
		}
		img.Pix[i] = v / step
	}
}
