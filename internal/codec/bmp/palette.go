package bmp

const paletteSlots = 256

// RGB is one palette entry.
type RGB struct {
	R, G, B byte
}

// Palette is a 256-slot colour table. Slots past the loaded entries are
// black, and for 1- and 4-bit images the slots reachable by masking a packed
// byte are pre-filled so pixel decoding needs no shifts.
type Palette struct {
	colors [paletteSlots]RGB
	n      int
}

// Len returns the number of entries read from the file.
func (p *Palette) Len() int {
	return p.n
}

// At returns the colour in slot i.
func (p *Palette) At(i byte) RGB {
	return p.colors[i]
}

func defaultPaletteSize(bitCount uint16) (int, bool) {
	switch bitCount {
	case 1:
		return 2, true
	case 4:
		return 16, true
	case 8:
		return 256, true
	}
	return 0, false
}

// loadPalette reads the colour table that sits between the headers (and
// masks) and the pixel data. It returns an empty palette when c is already at
// dataOffset.
func loadPalette(c *cursor, ih InfoHeader, dataOffset uint32) (*Palette, error) {
	p := &Palette{}
	if int64(c.offset()) == int64(dataOffset) {
		return p, nil
	}

	count := int(ih.ColorsUsed)
	if ih.ColorsUsed == 0 {
		def, ok := defaultPaletteSize(ih.BitCount)
		if !ok {
			return nil, newError(KindUnsupportedPaletteSize, "no default palette for %d bits per pixel", ih.BitCount)
		}
		count = def
	}
	if ih.ColorsUsed > paletteSlots {
		return nil, newError(KindUnsupportedPaletteSize, "%d colours", ih.ColorsUsed)
	}

	// Never read into the pixel data, even if the header claims more colours.
	if gap := int64(dataOffset) - int64(c.offset()); gap > 0 && int64(count)*4 > gap {
		count = int(gap / 4)
	}

	raw, err := c.bytes(count * 4)
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		e := raw[i*4 : i*4+4]
		// e[3] is reserved and ignored; encoders do not always zero it.
		p.colors[i] = RGB{R: e[2], G: e[1], B: e[0]}
	}
	p.n = count

	p.expand(ih.BitCount)
	return p, nil
}

// expand replicates entries so masked (unshifted) sub-byte codes resolve.
func (p *Palette) expand(bitCount uint16) {
	switch bitCount {
	case 1:
		for bit := 2; bit < paletteSlots; bit <<= 1 {
			p.colors[bit] = p.colors[1]
		}
	case 4:
		for i := 1; i < 16; i++ {
			p.colors[i<<4] = p.colors[i]
		}
	}
}
