// Package av1decoder provides an AV1 video decoder using libaom.
package av1decoder

/*
#cgo !windows pkg-config: aom
#cgo windows CFLAGS: -IC:/vcpkg/installed/x64-windows-static/include
#cgo windows LDFLAGS: -LC:/vcpkg/installed/x64-windows-static/lib -laom -static -lpthread
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

// Wrapper for aom_codec_dec_init with a thread count
static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface, unsigned int threads) {
    aom_codec_dec_cfg_t cfg;
    memset(&cfg, 0, sizeof(cfg));
    cfg.threads = threads;
    cfg.allow_lowbitdepth = 1;
    return aom_codec_dec_init(ctx, iface, &cfg, 0);
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static int get_format(aom_image_t *img) {
    return (int)img->fmt;
}

static unsigned int get_y_chroma_shift(aom_image_t *img) {
    return img->y_chroma_shift;
}

static int is_high_bitdepth(aom_image_t *img) {
    return (img->fmt & AOM_IMG_FMT_HIGHBITDEPTH) != 0;
}

static int is_bt709(aom_image_t *img) {
    return img->mc == AOM_CICP_MC_BT_709;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/user/webmplay/pkg/ports"
)

var (
	// ErrNotInitialized is returned when the decoder context is missing.
	ErrNotInitialized = errors.New("av1decoder: decoder not initialized")
	// ErrEmptyFrame is returned for zero-length input.
	ErrEmptyFrame = errors.New("av1decoder: empty frame data")
)

// Decoder implements ports.VideoDecoder using libaom.
// Images returned by NextImage point into libaom buffers and stay valid
// until the next Decode call.
type Decoder struct {
	codec *C.aom_codec_ctx_t
	iter  C.aom_codec_iter_t
	img   ports.Image
}

// New creates and initializes an AV1 decoder using the given number of threads.
func New(threads int) (*Decoder, error) {
	if threads < 1 {
		threads = 1
	}

	d := &Decoder{}
	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return nil, fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(d.codec, iface, C.uint(threads)); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return nil, fmt.Errorf("failed to initialize decoder: %d", res)
	}

	return d, nil
}

// Decode feeds one temporal unit to the decoder.
func (d *Decoder) Decode(data []byte) error {
	if d.codec == nil {
		return ErrNotInitialized
	}
	if len(data) == 0 {
		return ErrEmptyFrame
	}

	d.iter = nil
	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return fmt.Errorf("decode failed: %d", res)
	}
	return nil
}

// NextImage returns the next frame produced by the last Decode call.
func (d *Decoder) NextImage() (*ports.Image, bool) {
	if d.codec == nil {
		return nil, false
	}

	for {
		img := C.aom_codec_get_frame(d.codec, &d.iter)
		if img == nil {
			return nil, false
		}
		// 10/12-bit output has 16-bit samples; the renderers only take 8-bit planes.
		if C.is_high_bitdepth(img) != 0 {
			continue
		}
		if d.wrap(img) {
			return &d.img, true
		}
	}
}

// wrap points d.img at the planes of a libaom image without copying.
func (d *Decoder) wrap(img *C.aom_image_t) bool {
	width := int(C.get_width(img))
	height := int(C.get_height(img))

	var format ports.PixelFormat
	switch C.get_format(img) {
	case C.AOM_IMG_FMT_I420:
		format = ports.PixelFormatI420
	case C.AOM_IMG_FMT_I422:
		format = ports.PixelFormatI422
	case C.AOM_IMG_FMT_I444:
		format = ports.PixelFormatI444
	default:
		return false
	}

	shift := int(C.get_y_chroma_shift(img))
	chromaRows := (height + (1 << shift) - 1) >> shift

	d.img = ports.Image{
		Format:     format,
		ColorSpace: ports.ColorSpaceBT601,
		Width:      width,
		Height:     height,
	}
	if C.is_bt709(img) != 0 {
		d.img.ColorSpace = ports.ColorSpaceBT709
	}

	for plane := 0; plane < 3; plane++ {
		rows := height
		if plane > 0 {
			rows = chromaRows
		}
		stride := int(C.get_stride(img, C.int(plane)))
		ptr := C.get_plane(img, C.int(plane))
		if ptr == nil || stride <= 0 {
			return false
		}
		d.img.Planes[plane] = unsafe.Slice((*byte)(unsafe.Pointer(ptr)), stride*rows)
		d.img.Strides[plane] = stride
		d.img.Heights[plane] = rows
	}
	return true
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
	d.img = ports.Image{}
}

// Ensure Decoder implements ports.VideoDecoder
var _ ports.VideoDecoder = (*Decoder)(nil)
