package usecase

import (
	"image"
	"image/draw"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

// FrameDecoder draws a camera frame into an RGBA buffer and hands the pixels to
// the QR capability.
type FrameDecoder struct {
	decoder domain.Decoder
}

func NewFrameDecoder(decoder domain.Decoder) *FrameDecoder {
	return &FrameDecoder{decoder: decoder}
}

func (d *FrameDecoder) DecodeFrame(frame image.Image) (string, bool) {
	if frame == nil {
		return "", false
	}
	b := frame.Bounds()
	if b.Empty() {
		return "", false
	}
	buf := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(buf, buf.Bounds(), frame, b.Min, draw.Src)
	return d.decoder.Decode(buf.Pix, b.Dx(), b.Dy())
}
