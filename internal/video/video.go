// Package video defines the frame acquisition boundary. The production
// binary runs against the vendor capture stack behind the Source interface;
// the test pattern source below stands in for it during development and in
// tests.
package video

// Frame is one captured NV12 picture. Data holds the full NV12 buffer
// (width*height luma bytes followed by interleaved half-resolution CbCr).
// Frames are pool-backed: the consumer must hand every fetched frame back
// via Source.Release or the pool runs dry and Fetch blocks forever.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Seq    uint64
}

// Luma returns the Y plane of the frame.
func (f *Frame) Luma() []byte {
	return f.Data[:f.Width*f.Height]
}

// Source is a blocking pull-based frame supplier. It must be driven from a
// single goroutine: Start once, then Fetch/Release pairs until Fetch returns
// nil (end of stream), then Stop.
type Source interface {
	// Start begins frame production.
	Start() error
	// Fetch blocks until the next frame is available. A nil frame means the
	// stream has ended and no further frames will arrive.
	Fetch() *Frame
	// Release returns a fetched frame's buffer to the source's pool.
	Release(*Frame)
	// Stop ends the stream; a blocked Fetch returns nil.
	Stop()
}
