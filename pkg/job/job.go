// Package job assembles the signed archive uploaded for a verification job.
//
// The archive is a zip holding info.json plus every file image. It embeds a
// single-use token and the job's partner params, so it is built fresh for
// each submission and never reused.
package job

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/images"
	"smileid/pkg/signature"
	"smileid/pkg/validation"
)

const (
	// FileName is the name under which the archive is registered with the service.
	FileName = "selfie.zip"
	// InfoFileName is the metadata entry inside the archive.
	InfoFileName = "info.json"
	// Language identifies this SDK in package_information.
	Language = "go"
)

// Input is everything needed to build one job archive.
type Input struct {
	PartnerID     domain.PartnerID
	PartnerParams domain.PartnerParams
	// IDInfo is nil when the caller entered no id information.
	IDInfo      validation.IDInfo
	Images      []images.Image
	Token       signature.Token
	CallbackURL string
	UploadURL   string
}

// Package is a built archive ready for upload.
type Package struct {
	Info  Info
	Bytes []byte
}

// ContentType is the media type the upload must be sent with.
func (p *Package) ContentType() string {
	return "application/zip"
}

// Info is the info.json envelope.
type Info struct {
	PackageInformation PackageInformation `json:"package_information"`
	MiscInformation    MiscInformation    `json:"misc_information"`
	IDInfo             map[string]any     `json:"id_info"`
	Images             []ImageEntry       `json:"images"`
	ServerInformation  ServerInformation  `json:"server_information"`
}

// PackageInformation identifies the SDK that built the archive.
type PackageInformation struct {
	APIVersion APIVersion `json:"apiVersion"`
	Language   string     `json:"language"`
}

// APIVersion is the info.json schema version the archive follows.
type APIVersion struct {
	BuildNumber  int `json:"buildNumber"`
	MajorVersion int `json:"majorVersion"`
	MinorVersion int `json:"minorVersion"`
}

// MiscInformation carries the signed token, correlation ids and delivery options.
type MiscInformation struct {
	SecKey          string               `json:"sec_key"`
	Retry           string               `json:"retry"`
	PartnerParams   domain.PartnerParams `json:"partner_params"`
	Timestamp       int64                `json:"timestamp"`
	FileName        string               `json:"file_name"`
	SmileClientID   string               `json:"smile_client_id"`
	CallbackURL     string               `json:"callback_url"`
	UserData        UserData             `json:"userData"`
	ModelParameters map[string]any       `json:"model_parameters"`
}

// UserData holds the personal details echoed from the entered id info.
type UserData struct {
	IsVerifiedProcess  bool   `json:"isVerifiedProcess"`
	Name               string `json:"name"`
	FbUserID           string `json:"fbUserID"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Gender             string `json:"gender"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	CountryCode        string `json:"countryCode"`
	CountryOfResidence string `json:"countryOfResidence"`
}

// ImageEntry lists one image: inline content for base64 types, otherwise its name in the archive.
type ImageEntry struct {
	ImageTypeID int    `json:"image_type_id"`
	Image       string `json:"image"`
	FileName    string `json:"file_name"`
}

// ServerInformation records where the archive was uploaded.
type ServerInformation struct {
	UploadURL string `json:"upload_url"`
}

// Build composes info.json and packages it with the file images.
// Image validation is a precondition and is not repeated here.
func Build(in Input) (*Package, error) {
	if in.Token.SecKey == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a security token is required to build a job")
	}
	if err := in.PartnerParams.Validate(); err != nil {
		return nil, err
	}

	info := Info{
		PackageInformation: PackageInformation{
			APIVersion: APIVersion{BuildNumber: 0, MajorVersion: 2, MinorVersion: 0},
			Language:   Language,
		},
		MiscInformation: MiscInformation{
			SecKey:          in.Token.SecKey,
			Retry:           strconv.FormatBool(false),
			PartnerParams:   in.PartnerParams,
			Timestamp:       in.Token.Timestamp,
			FileName:        FileName,
			SmileClientID:   in.PartnerID.String(),
			CallbackURL:     in.CallbackURL,
			UserData:        userData(in.IDInfo),
			ModelParameters: map[string]any{},
		},
		IDInfo:            idInfo(in.IDInfo),
		Images:            make([]ImageEntry, 0, len(in.Images)),
		ServerInformation: ServerInformation{UploadURL: in.UploadURL},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := make(map[string]bool, len(in.Images))
	for i, img := range in.Images {
		name, err := img.FileName(i)
		if err != nil {
			return nil, err
		}
		entry := ImageEntry{ImageTypeID: int(img.Type), FileName: name}
		if img.Type.IsBase64() {
			entry.Image = img.Base64
		} else {
			if names[name] || name == InfoFileName {
				return nil, dErrors.Newf(dErrors.CodeInvalidInput, "image file name %s is used more than once", name)
			}
			names[name] = true
			raw, err := img.Bytes()
			if err != nil {
				return nil, err
			}
			if err := writeEntry(zw, entry.FileName, raw); err != nil {
				return nil, err
			}
		}
		info.Images = append(info.Images, entry)
	}

	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode info.json")
	}
	if err := writeEntry(zw, InfoFileName, infoJSON); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize job archive")
	}

	return &Package{Info: info, Bytes: buf.Bytes()}, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to add %s to job archive", name))
	}
	if _, err := w.Write(data); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to write %s to job archive", name))
	}
	return nil
}

func idInfo(info validation.IDInfo) map[string]any {
	out := make(map[string]any, len(info)+1)
	for k, v := range info {
		out[k] = v
	}
	out["entered"] = info != nil
	return out
}

func userData(info validation.IDInfo) UserData {
	return UserData{
		FirstName:          info["first_name"],
		LastName:           info["last_name"],
		Phone:              info["phone_number"],
		CountryOfResidence: info["country"],
	}
}
