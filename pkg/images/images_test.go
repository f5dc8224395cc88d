package images

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/testutil"
)

func TestValidate(t *testing.T) {
	jpg := testutil.JPEG(t)
	png := testutil.PNG(t)

	dir := t.TempDir()
	selfiePath := filepath.Join(dir, "selfie.jpg")
	require.NoError(t, os.WriteFile(selfiePath, jpg, 0o600))

	selfie := FromFile(SelfieFile, selfiePath)
	idCard := FromBase64(IDCardBase64, base64.StdEncoding.EncodeToString(png))

	tests := []struct {
		name    string
		imgs    []Image
		jobType domain.JobType
		entered bool
		wantErr string
	}{
		{"selfie with id card", []Image{selfie, idCard}, domain.JobTypeCompareSelfieToID, false, ""},
		{"selfie with entered id info", []Image{selfie}, domain.JobTypeCompareSelfieToID, true, ""},
		{"selfie only for register", []Image{selfie}, domain.JobTypeRegisterUser, false, ""},
		{"no images", nil, domain.JobTypeRegisterUser, false, "images cannot be empty"},
		{"no selfie", []Image{idCard}, domain.JobTypeCompareSelfieToID, false, "selfie"},
		{"job type 1 without id", []Image{selfie}, domain.JobTypeCompareSelfieToID, false, "job type 1"},
		{"unknown type", []Image{selfie, {Type: 9, Data: jpg}}, domain.JobTypeRegisterUser, false, "image_type_id 9"},
		{"not an image", []Image{{Type: SelfieFile, Data: []byte("plain text")}}, domain.JobTypeRegisterUser, false, "not a JPEG"},
		{"bad base64", []Image{FromBase64(SelfieBase64, "%%%")}, domain.JobTypeRegisterUser, false, "base64"},
		{"missing file", []Image{FromFile(SelfieFile, filepath.Join(dir, "nope.jpg"))}, domain.JobTypeRegisterUser, false, "cannot read image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.imgs, tt.jobType, tt.entered)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImageFormatAndNames(t *testing.T) {
	img := Image{Type: SelfieFile, Data: testutil.PNG(t)}
	format, err := img.Format()
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	t.Run("in-memory images are named by position and format", func(t *testing.T) {
		name, err := img.FileName(0)
		require.NoError(t, err)
		assert.Equal(t, "image_0_0.png", name)

		frame := Image{Type: LivenessFile, Data: testutil.JPEG(t)}
		first, err := frame.FileName(1)
		require.NoError(t, err)
		second, err := frame.FileName(2)
		require.NoError(t, err)
		assert.Equal(t, "image_4_1.jpg", first)
		assert.Equal(t, "image_4_2.jpg", second)
	})

	t.Run("files keep their base name", func(t *testing.T) {
		name, err := FromFile(SelfieFile, "/tmp/x/selfie.jpg").FileName(0)
		require.NoError(t, err)
		assert.Equal(t, "selfie.jpg", name)
	})

	t.Run("inline images have no file name", func(t *testing.T) {
		name, err := FromBase64(SelfieBase64, "").FileName(0)
		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("undecodable data has no name", func(t *testing.T) {
		_, err := Image{Type: LivenessFile, Data: []byte("nope")}.FileName(0)
		require.Error(t, err)
	})

	assert.True(t, LivenessBase64.IsBase64())
	assert.False(t, IDCardBackFile.IsBase64())
}
