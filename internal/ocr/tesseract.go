package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// ErrEngineUnavailable means the OCR engine is missing or misconfigured.
// Callers treat it as fatal at startup.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

type TesseractConfig struct {
	Language       string
	TessdataPrefix string
}

// Tesseract recognizes one word or line per call (tesseract --psm 8) with
// no layout analysis. The underlying client is not safe for concurrent use,
// so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	client := gosseract.NewClient()

	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: tessdata prefix: %v", ErrEngineUnavailable, err)
		}
	}
	if cfg.Language != "" {
		if err := client.SetLanguage(cfg.Language); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: language %q: %v", ErrEngineUnavailable, cfg.Language, err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_WORD); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: page segmentation mode: %v", ErrEngineUnavailable, err)
	}

	t := &Tesseract{client: client}
	if err := t.probe(); err != nil {
		client.Close()
		return nil, err
	}
	return t, nil
}

// probe runs one recognition on a blank image so a broken install fails
// here instead of on every detection.
func (t *Tesseract) probe() error {
	blank := image.NewGray(image.Rect(0, 0, 64, 24))
	draw.Draw(blank, blank.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, blank); err != nil {
		return fmt.Errorf("%w: encode probe image: %v", ErrEngineUnavailable, err)
	}
	if _, err := t.Recognize(context.Background(), buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

func (t *Tesseract) Recognize(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

// Version reports the linked tesseract library version.
func Version() string {
	return gosseract.Version()
}
