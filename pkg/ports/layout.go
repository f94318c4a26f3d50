package ports

// Conversion selects the path a renderer uses to turn an image into RGB.
type Conversion int

const (
	ConversionNone Conversion = iota
	ConversionBT601
	ConversionBT709
	ConversionBGRA
)

// String returns the string representation of the conversion path.
func (c Conversion) String() string {
	switch c {
	case ConversionBT601:
		return "yuv-bt601"
	case ConversionBT709:
		return "yuv-bt709"
	case ConversionBGRA:
		return "bgra"
	default:
		return "none"
	}
}

// PlaneLayout is the per-plane geometry a renderer needs to upload and
// composite a decoded image.
type PlaneLayout struct {
	Format     PixelFormat
	ColorSpace ColorSpace
	Conversion Conversion

	Count   int
	Widths  [4]int // bytes per row (stride)
	Heights [4]int // rows

	// ChromaShift scales luma coordinates into chroma coordinates.
	ChromaShift [2]float32
}

// Layout derives the plane layout of the image.
func (img *Image) Layout() PlaneLayout {
	l := PlaneLayout{
		Format:     img.Format,
		ColorSpace: img.ColorSpace,
	}

	switch img.Format {
	case PixelFormatI420:
		l.ChromaShift = [2]float32{0.5, 0.5}
	case PixelFormatI422:
		l.ChromaShift = [2]float32{0.5, 1}
	case PixelFormatI444, PixelFormatI444A:
		l.ChromaShift = [2]float32{1, 1}
	}

	for i, p := range img.Planes {
		if p == nil {
			continue
		}
		l.Widths[i] = img.Strides[i]
		switch {
		case i == 0 || i == 3:
			l.Heights[i] = img.Height
		case img.Format == PixelFormatI420:
			l.Heights[i] = (img.Height + 1) / 2
		default:
			l.Heights[i] = img.Height
		}
		l.Count++
	}

	switch {
	case img.Format.Planar() && img.ColorSpace == ColorSpaceBT709:
		l.Conversion = ConversionBT709
	case img.Format.Planar():
		l.Conversion = ConversionBT601
	case img.Format == PixelFormatARGB || img.Format == PixelFormatARGBLE:
		l.Conversion = ConversionBGRA
	}

	return l
}
