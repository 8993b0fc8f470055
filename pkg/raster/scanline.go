package raster

// scanline is one packed pixel row, MSB first, 1 = white.
type scanline []byte

func newScanline(n int) scanline {
	return make(scanline, n)
}

// clear sets every pixel, including trailing pad bits, to white.
func (s scanline) clear() {
	for i := range s {
		s[i] = 0xff
	}
}

// pack blackens the pixels of dark modules. Pixel offset is the first
// pixel of the data area; each module covers scale pixels. Only the low
// bit of each module byte is used.
func (s scanline) pack(modules []byte, offset, scale int) {
	q := offset / 8
	bit := 7 - offset%8
	for _, mod := range modules {
		b := mod & 1
		for i := 0; i < scale; i++ {
			s[q] ^= b << bit
			bit--
			if bit < 0 {
				q++
				bit = 7
			}
		}
	}
}

// white reports whether pixel x is white.
func (s scanline) white(x int) bool {
	return s[x/8]&(0x80>>(x%8)) != 0
}
