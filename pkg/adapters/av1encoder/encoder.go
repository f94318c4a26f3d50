// Package av1encoder provides an AV1 video encoder using libaom. It is used to
// generate test streams for the player.
package av1encoder

/*
#cgo !windows pkg-config: aom
#cgo windows CFLAGS: -IC:/vcpkg/installed/x64-windows-static/include
#cgo windows LDFLAGS: -LC:/vcpkg/installed/x64-windows-static/lib -laom -static -lpthread
#include <aom/aom_encoder.h>
#include <aom/aomcx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_interface() {
    return aom_codec_av1_cx();
}

// Wrapper for aom_codec_enc_init
static aom_codec_err_t init_encoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface,
                                     aom_codec_enc_cfg_t *cfg, aom_codec_flags_t flags) {
    return aom_codec_enc_init_ver(ctx, iface, cfg, flags, AOM_ENCODER_ABI_VERSION);
}

static int is_frame_packet(const aom_codec_cx_pkt_t *pkt) {
    return pkt->kind == AOM_CODEC_CX_FRAME_PKT;
}

static void* get_frame_buf(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.buf;
}

static size_t get_frame_sz(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.sz;
}

static int is_keyframe(const aom_codec_cx_pkt_t *pkt) {
    return (pkt->data.frame.flags & AOM_FRAME_IS_KEY) != 0;
}

static aom_codec_pts_t get_frame_pts(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.pts;
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_plane_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

// Wrapper for aom_codec_control (it's a variadic macro)
static aom_codec_err_t set_cpu_used(aom_codec_ctx_t *ctx, int value) {
    return aom_codec_control(ctx, AOME_SET_CPUUSED, value);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"unsafe"

	"github.com/user/webmplay/pkg/ports"
)

// CodecID is the Matroska codec ID of the produced bitstream.
const CodecID = "V_AV1"

// ErrNotStarted is returned when encoding before Begin or after End.
var ErrNotStarted = errors.New("av1encoder: encoder not initialized")

// Encoder implements ports.VideoEncoder using libaom in realtime mode.
type Encoder struct {
	mu sync.Mutex

	codec    *C.aom_codec_ctx_t
	cfg      *C.aom_codec_enc_cfg_t
	rawFrame *C.aom_image_t
	rgba     *image.RGBA

	width    int
	height   int
	fps      float64
	keyEvery int
	pts      int64
}

// New creates a new AV1 encoder.
func New() *Encoder {
	return &Encoder{}
}

// CodecID returns "V_AV1".
func (e *Encoder) CodecID() string {
	return CodecID
}

// Begin initializes the encoder. Timestamps count frames: the time base is one
// frame duration.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("invalid geometry %dx%d@%g", width, height, fps)
	}
	e.cleanup()

	e.width = width
	e.height = height
	e.fps = fps
	e.keyEvery = opts.KeyframeInterval
	e.pts = 0
	e.rgba = image.NewRGBA(image.Rect(0, 0, width, height))

	e.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if e.codec == nil {
		return fmt.Errorf("failed to allocate codec context")
	}
	C.memset(unsafe.Pointer(e.codec), 0, C.sizeof_aom_codec_ctx_t)

	e.cfg = (*C.aom_codec_enc_cfg_t)(C.malloc(C.sizeof_aom_codec_enc_cfg_t))
	if e.cfg == nil {
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
		return fmt.Errorf("failed to allocate encoder config")
	}

	iface := C.get_av1_interface()
	if res := C.aom_codec_enc_config_default(iface, e.cfg, C.AOM_USAGE_REALTIME); res != C.AOM_CODEC_OK {
		e.cleanup()
		return fmt.Errorf("failed to get default config: %d", res)
	}

	e.cfg.g_w = C.uint(width)
	e.cfg.g_h = C.uint(height)
	e.cfg.g_timebase.num = 1000
	e.cfg.g_timebase.den = C.int(fps * 1000)
	e.cfg.g_usage = C.AOM_USAGE_REALTIME
	e.cfg.g_lag_in_frames = 0
	e.cfg.g_threads = 4
	if opts.Threads > 0 {
		e.cfg.g_threads = C.uint(opts.Threads)
	}

	if opts.Bitrate > 0 {
		e.cfg.rc_target_bitrate = C.uint(opts.Bitrate)
	} else {
		e.cfg.rc_target_bitrate = C.uint(max(width*height/1000, 100))
	}

	e.cfg.rc_end_usage = C.AOM_CQ
	if opts.Quality > 0 && opts.Quality <= 63 {
		e.cfg.rc_min_quantizer = C.uint(opts.Quality)
		e.cfg.rc_max_quantizer = C.uint(min(opts.Quality+10, 63))
	}

	if e.keyEvery > 0 {
		e.cfg.kf_mode = C.AOM_KF_AUTO
		e.cfg.kf_max_dist = C.uint(e.keyEvery)
	}

	if res := C.init_encoder(e.codec, iface, e.cfg, 0); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
		e.cleanup()
		return fmt.Errorf("failed to initialize encoder: %d", res)
	}

	// 0 = slowest/best, 10 = fastest
	C.set_cpu_used(e.codec, 8)

	e.rawFrame = (*C.aom_image_t)(C.malloc(C.sizeof_aom_image_t))
	if e.rawFrame == nil {
		e.cleanup()
		return fmt.Errorf("failed to allocate raw frame")
	}
	if C.aom_img_alloc(e.rawFrame, C.AOM_IMG_FMT_I420, C.uint(width), C.uint(height), 32) == nil {
		C.free(unsafe.Pointer(e.rawFrame))
		e.rawFrame = nil
		e.cleanup()
		return fmt.Errorf("failed to allocate image buffer")
	}

	return nil
}

// EncodeFrame encodes one picture. The first frame and every KeyframeInterval-th
// frame are forced keyframes.
func (e *Encoder) EncodeFrame(img image.Image) ([]ports.EncodedFrame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return nil, ErrNotStarted
	}

	draw.Draw(e.rgba, e.rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	e.fillI420(e.rgba)

	flags := C.aom_enc_frame_flags_t(0)
	if e.pts == 0 || (e.keyEvery > 0 && e.pts%int64(e.keyEvery) == 0) {
		flags = C.AOM_EFLAG_FORCE_KF
	}

	if res := C.aom_codec_encode(e.codec, e.rawFrame, C.aom_codec_pts_t(e.pts), 1, flags); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("encoding failed: %d", res)
	}
	e.pts++

	return e.drain(), nil
}

// End flushes the encoder, returns the remaining frames and releases libaom state.
func (e *Encoder) End() ([]ports.EncodedFrame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return nil, ErrNotStarted
	}
	defer e.cleanup()

	if res := C.aom_codec_encode(e.codec, nil, 0, 1, 0); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("flush failed: %d", res)
	}
	return e.drain(), nil
}

// drain collects the frame packets produced by the last encode call.
func (e *Encoder) drain() []ports.EncodedFrame {
	var frames []ports.EncodedFrame
	var iter C.aom_codec_iter_t
	for {
		pkt := C.aom_codec_get_cx_data(e.codec, &iter)
		if pkt == nil {
			break
		}
		if C.is_frame_packet(pkt) == 0 {
			continue
		}

		pts := int64(C.get_frame_pts(pkt))
		frames = append(frames, ports.EncodedFrame{
			Data:        C.GoBytes(C.get_frame_buf(pkt), C.int(C.get_frame_sz(pkt))),
			TimestampNs: int64(float64(pts) * 1e9 / e.fps),
			IsKeyframe:  C.is_keyframe(pkt) != 0,
		})
	}
	return frames
}

func (e *Encoder) cleanup() {
	if e.rawFrame != nil {
		C.aom_img_free(e.rawFrame)
		C.free(unsafe.Pointer(e.rawFrame))
		e.rawFrame = nil
	}
	if e.codec != nil {
		C.aom_codec_destroy(e.codec)
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
	}
	if e.cfg != nil {
		C.free(unsafe.Pointer(e.cfg))
		e.cfg = nil
	}
}

// fillI420 converts the RGBA picture into the raw frame's planes (BT.601, limited range).
func (e *Encoder) fillI420(rgba *image.RGBA) {
	w, h := e.width, e.height
	cw, ch := (w+1)/2, (h+1)/2

	var planes [3][]byte
	var strides [3]int
	for p := 0; p < 3; p++ {
		rows := h
		if p > 0 {
			rows = ch
		}
		strides[p] = int(C.get_plane_stride(e.rawFrame, C.int(p)))
		planes[p] = unsafe.Slice((*byte)(unsafe.Pointer(C.get_plane(e.rawFrame, C.int(p)))), strides[p]*rows)
	}

	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			r, g, b := int(row[x*4]), int(row[x*4+1]), int(row[x*4+2])
			planes[0][y*strides[0]+x] = clamp(((66*r + 129*g + 25*b + 128) >> 8) + 16)
		}
	}

	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			idx := (cy*2)*rgba.Stride + (cx*2)*4
			r, g, b := int(rgba.Pix[idx]), int(rgba.Pix[idx+1]), int(rgba.Pix[idx+2])
			planes[1][cy*strides[1]+cx] = clamp(((-38*r - 74*g + 112*b + 128) >> 8) + 128)
			planes[2][cy*strides[2]+cx] = clamp(((112*r - 94*g - 18*b + 128) >> 8) + 128)
		}
	}
}

func clamp(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// Ensure Encoder implements ports.VideoEncoder
var _ ports.VideoEncoder = (*Encoder)(nil)
