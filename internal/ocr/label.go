// Package ocr reads equipment ids printed on extinguisher labels, for units whose
// QR sticker is missing or unreadable.
package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"

	"github.com/apex/log"
	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultIDPattern matches ids such as EXT-1007 or FE00231.
const DefaultIDPattern = `[A-Z]{2,4}-?\d{3,6}`

var ErrNoEquipmentID = errors.New("no equipment id found on label")

type LabelReader struct {
	idPattern *regexp.Regexp
	log       log.Interface
}

func NewLabelReader(pattern string, logger log.Interface) (*LabelReader, error) {
	if pattern == "" {
		pattern = DefaultIDPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid id pattern: %w", err)
	}
	return &LabelReader{idPattern: re, log: logger}, nil
}

func (r *LabelReader) ReadLabel(imageBytes []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Grayscale, contrast and sharpen before Tesseract.
	processed := imaging.Grayscale(img)
	processed = imaging.AdjustContrast(processed, 20)
	processed = imaging.Sharpen(processed, 0.5)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, processed, imaging.JPEG); err != nil {
		return "", fmt.Errorf("failed to encode processed image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image for OCR: %w", err)
	}
	if err := client.SetWhitelist("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"); err != nil {
		return "", fmt.Errorf("failed to set OCR whitelist: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	r.log.WithField("text", strings.TrimSpace(text)).Debug("label OCR result")

	id, ok := ExtractEquipmentID(text, r.idPattern)
	if !ok {
		return "", ErrNoEquipmentID
	}
	return id, nil
}

// ExtractEquipmentID returns the first whitespace-separated token containing an id.
func ExtractEquipmentID(text string, re *regexp.Regexp) (string, bool) {
	for _, token := range strings.Fields(strings.ToUpper(text)) {
		if m := re.FindString(token); m != "" {
			return m, true
		}
	}
	return "", false
}
