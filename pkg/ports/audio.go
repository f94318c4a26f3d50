package ports

// AudioDecoder abstracts a packet-based audio decoder producing
// interleaved float32 PCM.
type AudioDecoder interface {
	// ReadHeader consumes one codec setup header.
	ReadHeader(header []byte) error

	// Decode decodes one packet. The returned slice is only valid until
	// the next Decode call.
	Decode(packet []byte) ([]float32, error)

	// Reset clears decoding state but keeps the headers.
	Reset()

	// SampleRate returns the sample rate once headers are read.
	SampleRate() int

	// Channels returns the channel count once headers are read.
	Channels() int
}

// AudioCodec creates audio decoders for codec IDs.
type AudioCodec interface {
	// Supports reports whether the codec ID can be decoded.
	Supports(codecID string) bool

	// Open creates a decoder instance.
	Open(codecID string) (AudioDecoder, error)
}

// AudioCallback fills out with frames*channels interleaved samples.
// out is zeroed by the caller.
type AudioCallback func(out []float32, frames, channels int)

// AudioFormat describes the stream an audio device is opened with.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// AudioDevice abstracts an audio output driver that pulls PCM through a callback.
type AudioDevice interface {
	// Open prepares the device for the given format and callback.
	Open(format AudioFormat, cb AudioCallback) error

	// Start begins delivering callbacks.
	Start() error

	// Stop halts callbacks. No callback is in flight once Stop returns.
	Stop() error

	// Close releases the device. The device must be stopped.
	Close() error
}
