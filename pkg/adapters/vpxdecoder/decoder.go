// Package vpxdecoder provides VP8 and VP9 video decoders using libvpx.
package vpxdecoder

/*
#cgo !windows pkg-config: vpx
#cgo windows CFLAGS: -IC:/vcpkg/installed/x64-windows-static/include
#cgo windows LDFLAGS: -LC:/vcpkg/installed/x64-windows-static/lib -lvpx -static -lpthread
#include <vpx/vpx_decoder.h>
#include <vpx/vp8dx.h>
#include <stdlib.h>
#include <string.h>

static vpx_codec_iface_t* get_interface(int vp9) {
    return vp9 ? vpx_codec_vp9_dx() : vpx_codec_vp8_dx();
}

// Wrapper for the vpx_codec_dec_init macro
static vpx_codec_err_t init_decoder(vpx_codec_ctx_t *ctx, vpx_codec_iface_t *iface, unsigned int threads) {
    vpx_codec_dec_cfg_t cfg;
    memset(&cfg, 0, sizeof(cfg));
    cfg.threads = threads;
    return vpx_codec_dec_init(ctx, iface, &cfg, 0);
}

static unsigned char* get_plane(vpx_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(vpx_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(vpx_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(vpx_image_t *img) {
    return img->d_h;
}

static int get_format(vpx_image_t *img) {
    return (int)img->fmt;
}

static unsigned int get_y_chroma_shift(vpx_image_t *img) {
    return img->y_chroma_shift;
}

static int get_color_space(vpx_image_t *img) {
    return (int)img->cs;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/user/webmplay/pkg/ports"
)

// Codec selects the libvpx decoder interface.
type Codec int

const (
	VP8 Codec = iota
	VP9
)

// String returns the string representation of the codec.
func (c Codec) String() string {
	if c == VP9 {
		return "vp9"
	}
	return "vp8"
}

var (
	// ErrNotInitialized is returned when the decoder context is missing.
	ErrNotInitialized = errors.New("vpxdecoder: decoder not initialized")
	// ErrEmptyFrame is returned for zero-length input.
	ErrEmptyFrame = errors.New("vpxdecoder: empty frame data")
)

// Decoder implements ports.VideoDecoder using libvpx.
// Images returned by NextImage point into libvpx buffers and stay valid
// until the next Decode call.
type Decoder struct {
	codec *C.vpx_codec_ctx_t
	iter  C.vpx_codec_iter_t
	img   ports.Image
}

// New creates and initializes a VP8 or VP9 decoder.
func New(codec Codec, threads int) (*Decoder, error) {
	if threads < 1 {
		threads = 1
	}

	d := &Decoder{}
	d.codec = (*C.vpx_codec_ctx_t)(C.malloc(C.sizeof_vpx_codec_ctx_t))
	if d.codec == nil {
		return nil, fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_vpx_codec_ctx_t)

	vp9 := C.int(0)
	if codec == VP9 {
		vp9 = 1
	}
	if res := C.init_decoder(d.codec, C.get_interface(vp9), C.uint(threads)); res != C.VPX_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return nil, fmt.Errorf("failed to initialize %s decoder: %d", codec, res)
	}

	return d, nil
}

// Decode feeds one compressed frame to the decoder.
func (d *Decoder) Decode(data []byte) error {
	if d.codec == nil {
		return ErrNotInitialized
	}
	if len(data) == 0 {
		return ErrEmptyFrame
	}

	d.iter = nil
	res := C.vpx_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&data[0])),
		C.uint(len(data)),
		nil,
		0,
	)
	if res != C.VPX_CODEC_OK {
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
		img := C.vpx_codec_get_frame(d.codec, &d.iter)
		if img == nil {
			return nil, false
		}
		if d.wrap(img) {
			return &d.img, true
		}
	}
}

// wrap points d.img at the planes of a libvpx image without copying.
// High bit depth and semi-planar formats are skipped.
func (d *Decoder) wrap(img *C.vpx_image_t) bool {
	var format ports.PixelFormat
	switch C.get_format(img) {
	case C.VPX_IMG_FMT_I420:
		format = ports.PixelFormatI420
	case C.VPX_IMG_FMT_I422:
		format = ports.PixelFormatI422
	case C.VPX_IMG_FMT_I444:
		format = ports.PixelFormatI444
	default:
		return false
	}

	width := int(C.get_width(img))
	height := int(C.get_height(img))
	shift := int(C.get_y_chroma_shift(img))
	chromaRows := (height + (1 << shift) - 1) >> shift

	d.img = ports.Image{
		Format:     format,
		ColorSpace: ports.ColorSpaceBT601,
		Width:      width,
		Height:     height,
	}
	switch C.get_color_space(img) {
	case C.VPX_CS_BT_709:
		d.img.ColorSpace = ports.ColorSpaceBT709
	case C.VPX_CS_SRGB:
		d.img.ColorSpace = ports.ColorSpaceSRGB
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
		C.vpx_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
	d.img = ports.Image{}
}

// Ensure Decoder implements ports.VideoDecoder
var _ ports.VideoDecoder = (*Decoder)(nil)
