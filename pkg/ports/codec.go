package ports

// PixelFormat identifies the layout of a decoded image.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatI420
	PixelFormatI422
	PixelFormatI444
	PixelFormatI444A
	PixelFormatARGB
	PixelFormatARGBLE
)

// String returns the string representation of the pixel format.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatI420:
		return "i420"
	case PixelFormatI422:
		return "i422"
	case PixelFormatI444:
		return "i444"
	case PixelFormatI444A:
		return "i444a"
	case PixelFormatARGB:
		return "argb"
	case PixelFormatARGBLE:
		return "argb-le"
	default:
		return "unknown"
	}
}

// Planar reports whether the format stores Y, U and V in separate planes.
func (f PixelFormat) Planar() bool {
	switch f {
	case PixelFormatI420, PixelFormatI422, PixelFormatI444, PixelFormatI444A:
		return true
	default:
		return false
	}
}

// ColorSpace is the color-space tag carried by a decoded image.
type ColorSpace int

const (
	ColorSpaceUnknown ColorSpace = iota
	ColorSpaceBT601
	ColorSpaceBT709
	ColorSpaceSRGB
)

// String returns the string representation of the color space.
func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceBT601:
		return "bt601"
	case ColorSpaceBT709:
		return "bt709"
	case ColorSpaceSRGB:
		return "srgb"
	default:
		return "unknown"
	}
}

// Image is a decoded picture. Images returned by a VideoDecoder are only
// valid until the next Decode call on the same decoder.
type Image struct {
	Format     PixelFormat
	ColorSpace ColorSpace
	Width      int // display width
	Height     int // display height

	Planes  [4][]byte
	Strides [4]int
	Heights [4]int // rows per plane
}

// PlaneCount returns the number of non-empty planes.
func (img *Image) PlaneCount() int {
	n := 0
	for _, p := range img.Planes {
		if p != nil {
			n++
		}
	}
	return n
}

// CopyFrom copies src into img, reusing img's plane buffers when they are large enough.
func (img *Image) CopyFrom(src *Image) {
	img.Format = src.Format
	img.ColorSpace = src.ColorSpace
	img.Width = src.Width
	img.Height = src.Height
	img.Strides = src.Strides
	img.Heights = src.Heights
	for i, p := range src.Planes {
		if p == nil {
			img.Planes[i] = nil
			continue
		}
		if cap(img.Planes[i]) < len(p) {
			img.Planes[i] = make([]byte, len(p))
		}
		img.Planes[i] = img.Planes[i][:len(p)]
		copy(img.Planes[i], p)
	}
}

// VideoDecoder abstracts a block-based video decoder instance.
type VideoDecoder interface {
	// Decode feeds one compressed frame to the decoder.
	Decode(data []byte) error

	// NextImage returns the next decoded image, if any.
	NextImage() (*Image, bool)

	// Close releases decoder resources.
	Close()
}

// CodecFamily describes decoder behaviour shared by a group of codec IDs.
type CodecFamily struct {
	Name string

	// ResetOnSeek is true when the decoder must be destroyed and
	// reinitialized before it can re-enter the stream at a keyframe.
	ResetOnSeek bool
}

// VideoCodec opens decoders for codec IDs.
type VideoCodec interface {
	// Family reports the codec family of a codec ID and whether it is supported.
	Family(codecID string) (CodecFamily, bool)

	// Open creates a decoder instance.
	Open(codecID string, threads int) (VideoDecoder, error)
}
