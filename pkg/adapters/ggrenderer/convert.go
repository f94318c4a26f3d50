package ggrenderer

import (
	"errors"
	"fmt"
	"image"

	"github.com/user/webmplay/pkg/ports"
)

// ErrUnsupportedFormat is returned for images without a conversion path.
var ErrUnsupportedFormat = errors.New("ggrenderer: unsupported pixel format")

// Fixed-point (x256) limited-range YUV to RGB coefficients.
type coefficients struct {
	y, rv, gu, gv, bu int
}

var (
	bt601 = coefficients{y: 298, rv: 409, gu: 100, gv: 208, bu: 516}
	bt709 = coefficients{y: 298, rv: 459, gu: 55, gv: 136, bu: 541}
)

// ToRGBA converts a decoded image using the conversion path of its plane layout.
func (r *Renderer) ToRGBA(img *ports.Image) (*image.RGBA, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("empty image")
	}

	layout := img.Layout()
	dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))

	switch layout.Conversion {
	case ports.ConversionBT601:
		return dst, yuvToRGBA(dst, img, layout, bt601)
	case ports.ConversionBT709:
		return dst, yuvToRGBA(dst, img, layout, bt709)
	case ports.ConversionBGRA:
		return dst, packedToRGBA(dst, img)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, img.Format)
	}
}

func yuvToRGBA(dst *image.RGBA, img *ports.Image, layout ports.PlaneLayout, k coefficients) error {
	if layout.Count < 3 {
		return fmt.Errorf("%w: %d planes", ErrUnsupportedFormat, layout.Count)
	}
	sx := shiftOf(layout.ChromaShift[0])
	sy := shiftOf(layout.ChromaShift[1])
	alpha := img.Format == ports.PixelFormatI444A && img.Planes[3] != nil

	yp, up, vp := img.Planes[0], img.Planes[1], img.Planes[2]
	ys, us, vs := img.Strides[0], img.Strides[1], img.Strides[2]
	if len(yp) < ys*(img.Height-1)+img.Width {
		return fmt.Errorf("luma plane too short: %d bytes", len(yp))
	}
	cw := (img.Width + (1 << sx) - 1) >> sx
	ch := (img.Height + (1 << sy) - 1) >> sy
	if len(up) < us*(ch-1)+cw || len(vp) < vs*(ch-1)+cw {
		return fmt.Errorf("chroma plane too short")
	}

	for y := 0; y < img.Height; y++ {
		row := dst.Pix[y*dst.Stride:]
		cy := y >> sy
		for x := 0; x < img.Width; x++ {
			cx := x >> sx
			c := k.y * (int(yp[y*ys+x]) - 16)
			d := int(up[cy*us+cx]) - 128
			e := int(vp[cy*vs+cx]) - 128

			row[x*4] = clamp((c + k.rv*e + 128) >> 8)
			row[x*4+1] = clamp((c - k.gu*d - k.gv*e + 128) >> 8)
			row[x*4+2] = clamp((c + k.bu*d + 128) >> 8)
			row[x*4+3] = 255
			if alpha {
				row[x*4+3] = img.Planes[3][y*img.Strides[3]+x]
			}
		}
	}
	return nil
}

// packedToRGBA handles 32-bit packed pixels. ARGB stores bytes as A,R,G,B;
// ARGB_LE is the little-endian word, stored as B,G,R,A.
func packedToRGBA(dst *image.RGBA, img *ports.Image) error {
	src, stride := img.Planes[0], img.Strides[0]
	if len(src) < stride*(img.Height-1)+img.Width*4 {
		return fmt.Errorf("packed plane too short: %d bytes", len(src))
	}

	a, r, g, b := 0, 1, 2, 3
	if img.Format == ports.PixelFormatARGBLE {
		a, r, g, b = 3, 2, 1, 0
	}
	for y := 0; y < img.Height; y++ {
		in := src[y*stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < img.Width; x++ {
			p := in[x*4 : x*4+4]
			out[x*4] = p[r]
			out[x*4+1] = p[g]
			out[x*4+2] = p[b]
			out[x*4+3] = p[a]
		}
	}
	return nil
}

func shiftOf(scale float32) int {
	if scale > 0 && scale < 1 {
		return 1
	}
	return 0
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
