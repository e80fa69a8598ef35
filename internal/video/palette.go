package video

// RGB is one palette entry
type RGB struct {
	R, G, B uint8
}

// The four built-in colour palettes. Index 0 is the NTSC composite set; the
// others are common alternates. Two monochrome palettes (green, amber) are
// derived from the selected base at mode-set time.
var colorPalettes = [4][16]RGB{
	// NTSC composite
	{
		{0x00, 0x00, 0x00}, {0x8A, 0x21, 0x40}, {0x3C, 0x22, 0xA5}, {0xC8, 0x47, 0xE4},
		{0x07, 0x65, 0x3E}, {0x7B, 0x7E, 0x80}, {0x30, 0x8E, 0xF3}, {0xB9, 0xA9, 0xFD},
		{0x3B, 0x51, 0x07}, {0xC7, 0x70, 0x28}, {0x7B, 0x7E, 0x80}, {0xF3, 0x9A, 0xC2},
		{0x2F, 0xB8, 0x1F}, {0xB9, 0xD0, 0x60}, {0x6E, 0xE1, 0xC0}, {0xFF, 0xFF, 0xFF},
	},
	// RGB monitor
	{
		{0x00, 0x00, 0x00}, {0xDD, 0x00, 0x33}, {0x00, 0x00, 0x99}, {0xDD, 0x22, 0xDD},
		{0x00, 0x77, 0x22}, {0x55, 0x55, 0x55}, {0x22, 0x22, 0xFF}, {0x66, 0xAA, 0xFF},
		{0x88, 0x55, 0x00}, {0xFF, 0x66, 0x00}, {0xAA, 0xAA, 0xAA}, {0xFF, 0x99, 0x88},
		{0x00, 0xDD, 0x00}, {0xFF, 0xFF, 0x00}, {0x55, 0xFF, 0x99}, {0xFF, 0xFF, 0xFF},
	},
	// Muted composite
	{
		{0x00, 0x00, 0x00}, {0x72, 0x26, 0x40}, {0x40, 0x33, 0x7F}, {0xE4, 0x34, 0xFE},
		{0x0E, 0x59, 0x40}, {0x80, 0x80, 0x80}, {0x1B, 0x9A, 0xFE}, {0xBF, 0xB3, 0xFF},
		{0x40, 0x4C, 0x00}, {0xE4, 0x65, 0x01}, {0x80, 0x80, 0x80}, {0xF1, 0xA6, 0xBF},
		{0x1B, 0xCB, 0x01}, {0xBF, 0xCC, 0x80}, {0x8D, 0xD9, 0xBF}, {0xFF, 0xFF, 0xFF},
	},
	// High-saturation
	{
		{0x00, 0x00, 0x00}, {0xAC, 0x12, 0x4C}, {0x00, 0x07, 0x83}, {0xAA, 0x1A, 0xD1},
		{0x00, 0x83, 0x2F}, {0x9F, 0x97, 0x7E}, {0x00, 0x8A, 0xB5}, {0x9F, 0x9E, 0xFF},
		{0x7A, 0x5B, 0x03}, {0xFF, 0x62, 0x52}, {0x9F, 0x97, 0x7E}, {0xFF, 0x6E, 0xFF},
		{0x0E, 0xF8, 0x2F}, {0xFF, 0xFD, 0x55}, {0x0E, 0xFF, 0xB5}, {0xFF, 0xFF, 0xFF},
	},
}

// Monochrome base hues
var (
	monoGreen = RGB{0x14, 0xF5, 0x3C}
	monoAmber = RGB{0xFF, 0xBF, 0x00}
)

// PaletteCount is the number of selectable palettes: four colour plus green
// and amber monochrome
const PaletteCount = 6

// luminance computes the Rec.709 luma of a colour, 0..255
func luminance(c RGB) uint32 {
	// 0.2126 R + 0.7152 G + 0.0722 B in 16.16 fixed point
	return (13933*uint32(c.R) + 46871*uint32(c.G) + 4732*uint32(c.B)) >> 16
}

// monoScale maps a colour's luminance into the base hue
func monoScale(base RGB, c RGB) RGB {
	l := luminance(c)
	return RGB{
		R: uint8(uint32(base.R) * l / 255),
		G: uint8(uint32(base.G) * l / 255),
		B: uint8(uint32(base.B) * l / 255),
	}
}

// rgbToHSV converts to h (0..359), s (0..255), v (0..255)
func rgbToHSV(c RGB) (h int, s, v uint8) {
	r, g, b := int(c.R), int(c.G), int(c.B)
	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	min := r
	if g < min {
		min = g
	}
	if b < min {
		min = b
	}
	v = uint8(max)
	delta := max - min
	if max == 0 || delta == 0 {
		return 0, 0, v
	}
	s = uint8(255 * delta / max)
	switch max {
	case r:
		h = (60 * (g - b) / delta)
	case g:
		h = 120 + 60*(b-r)/delta
	default:
		h = 240 + 60*(r-g)/delta
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// hsvToRGB converts back from h (0..359), s (0..255), v (0..255)
func hsvToRGB(h int, s, v uint8) RGB {
	if s == 0 {
		return RGB{v, v, v}
	}
	region := h / 60
	rem := h % 60
	p := uint8(uint32(v) * (255 - uint32(s)) / 255)
	q := uint8(uint32(v) * (255*60 - uint32(s)*uint32(rem)) / (255 * 60))
	t := uint8(uint32(v) * (255*60 - uint32(s)*uint32(60-rem)) / (255 * 60))
	switch region {
	case 0:
		return RGB{v, t, p}
	case 1:
		return RGB{q, v, p}
	case 2:
		return RGB{p, v, t}
	case 3:
		return RGB{p, q, v}
	case 4:
		return RGB{t, p, v}
	default:
		return RGB{v, p, q}
	}
}

// dimColor produces the reduced-chroma variant used at artifact
// transitions: saturation and value scaled by 0.75 in colour, value halved
// in monochrome.
func dimColor(c RGB, mono bool) RGB {
	h, s, v := rgbToHSV(c)
	if mono {
		return hsvToRGB(h, s, v/2)
	}
	return hsvToRGB(h, uint8(uint32(s)*3/4), uint8(uint32(v)*3/4))
}

// buildCLUT derives the active colour tables for a palette index.
// Indices 0..3 select a colour palette, 4 is green, 5 is amber; anything
// out of range wraps to 0.
func buildCLUT(palette int) (clut, clutLow [16]RGB, mono bool) {
	if palette < 0 || palette >= PaletteCount {
		palette = 0
	}
	switch {
	case palette < 4:
		clut = colorPalettes[palette]
	case palette == 4:
		mono = true
		for i, c := range colorPalettes[0] {
			clut[i] = monoScale(monoGreen, c)
		}
	default:
		mono = true
		for i, c := range colorPalettes[0] {
			clut[i] = monoScale(monoAmber, c)
		}
	}
	for i, c := range clut {
		clutLow[i] = dimColor(c, mono)
	}
	return clut, clutLow, mono
}
