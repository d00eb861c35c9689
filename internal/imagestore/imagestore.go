// Package imagestore turns uploaded product images into something a product's
// image field can hold: an inline data URI or the URL of an S3 object.
package imagestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const MaxImageSize = 5 << 20

var (
	ErrTooLarge = errors.New("image exceeds 5 MiB")
	ErrNotImage = errors.New("file is not an image")
	ErrEmpty    = errors.New("image is empty")
)

type Store interface {
	Save(ctx context.Context, data []byte) (string, error)
}

// Detect validates an upload and returns its sniffed MIME type and extension.
func Detect(data []byte) (mime, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmpty
	}
	if len(data) > MaxImageSize {
		return "", "", ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return mt.String(), mt.Extension(), nil
}

type InlineStore struct{}

func NewInlineStore() *InlineStore {
	return &InlineStore{}
}

func (InlineStore) Save(_ context.Context, data []byte) (string, error) {
	mime, _, err := Detect(data)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
