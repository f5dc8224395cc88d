// Package images describes the images attached to a job and checks them
// before a job is packaged.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"

	_ "golang.org/x/image/webp" // register decoder

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
)

// Type is the image_type_id understood by the service.
type Type int

// Image type ids. File types travel inside the archive; base64 types travel inline in info.json.
const (
	SelfieFile       Type = 0
	IDCardFile       Type = 1
	SelfieBase64     Type = 2
	IDCardBase64     Type = 3
	LivenessFile     Type = 4
	IDCardBackFile   Type = 5
	LivenessBase64   Type = 6
	IDCardBackBase64 Type = 7
)

// IsValid reports whether t is a known image type id.
func (t Type) IsValid() bool {
	return t >= SelfieFile && t <= IDCardBackBase64
}

// IsBase64 reports whether images of this type are sent inline.
func (t Type) IsBase64() bool {
	switch t {
	case SelfieBase64, IDCardBase64, LivenessBase64, IDCardBackBase64:
		return true
	}
	return false
}

// IsSelfie reports whether t carries the selfie.
func (t Type) IsSelfie() bool {
	return t == SelfieFile || t == SelfieBase64
}

// IsIDCard reports whether t carries the front of an id card.
func (t Type) IsIDCard() bool {
	return t == IDCardFile || t == IDCardBase64
}

// Image is one image of a job. For file types Path names a file on disk or
// Data holds its bytes; for base64 types Base64 holds the encoded content.
type Image struct {
	Type   Type
	Path   string
	Data   []byte
	Base64 string
}

// FromFile returns a file image read lazily from path.
func FromFile(t Type, path string) Image {
	return Image{Type: t, Path: path}
}

// FromBase64 returns an inline image.
func FromBase64(t Type, encoded string) Image {
	return Image{Type: t, Base64: encoded}
}

// FileName is the name the image has inside the archive. Images read from
// disk keep their base name; in-memory images are named by their position
// in the job and their detected format, so several frames of one type never
// collide. Inline images have no file name.
func (i Image) FileName(index int) (string, error) {
	if i.Type.IsBase64() {
		return "", nil
	}
	if i.Path != "" {
		return filepath.Base(i.Path), nil
	}
	format, err := i.Format()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("image_%d_%d.%s", int(i.Type), index, extension(format)), nil
}

func extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

// Bytes returns the raw image content.
func (i Image) Bytes() ([]byte, error) {
	if i.Type.IsBase64() {
		raw, err := base64.StdEncoding.DecodeString(i.Base64)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("image type %d is not valid base64", int(i.Type)))
		}
		return raw, nil
	}
	if i.Data != nil {
		return i.Data, nil
	}
	if i.Path == "" {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "image type %d has no content", int(i.Type))
	}
	raw, err := os.ReadFile(i.Path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("cannot read image %s", i.Path))
	}
	return raw, nil
}

// Format decodes the image header and returns the detected format.
func (i Image) Format() (string, error) {
	raw, err := i.Bytes()
	if err != nil {
		return "", err
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("image type %d is not a JPEG, PNG or WebP image", int(i.Type)))
	}
	return format, nil
}

// Validate checks the image set for a job: there must be a selfie, a job of
// type 1 without entered id info needs an id card image, and every image must
// decode as a supported format.
func Validate(imgs []Image, jobType domain.JobType, idInfoEntered bool) error {
	if len(imgs) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "images cannot be empty")
	}

	var hasSelfie, hasIDCard bool
	for _, img := range imgs {
		if !img.Type.IsValid() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "image_type_id %d is not supported", int(img.Type))
		}
		if _, err := img.Format(); err != nil {
			return err
		}
		hasSelfie = hasSelfie || img.Type.IsSelfie()
		hasIDCard = hasIDCard || img.Type.IsIDCard()
	}

	if !hasSelfie {
		return dErrors.New(dErrors.CodeInvalidInput, "you need to send through a selfie")
	}
	if jobType == domain.JobTypeCompareSelfieToID && !idInfoEntered && !hasIDCard {
		return dErrors.New(dErrors.CodeInvalidInput, "you are attempting to complete a job type 1 without providing an id card image or id info")
	}
	return nil
}
