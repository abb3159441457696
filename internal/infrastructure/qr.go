package infrastructure

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDecoder reads QR symbols from RGBA pixel buffers. A frame that does not decode
// as captured gets one more attempt after grayscale, contrast and sharpening.
type QRDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *QRDecoder) Decode(pix []byte, width, height int) (string, bool) {
	if width <= 0 || height <= 0 || len(pix) < 4*width*height {
		return "", false
	}
	img := &image.RGBA{
		Pix:    pix,
		Stride: 4 * width,
		Rect:   image.Rect(0, 0, width, height),
	}
	if text, ok := d.decode(img); ok {
		return text, true
	}

	processed := imaging.Grayscale(img)
	processed = imaging.AdjustContrast(processed, 20)
	processed = imaging.Sharpen(processed, 0.5)
	return d.decode(processed)
}

func (d *QRDecoder) decode(img image.Image) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	// QRCodeReader is not safe for concurrent use.
	result, err := qrcode.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", false
	}
	return result.GetText(), true
}
