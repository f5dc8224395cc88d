package version

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"smileid/pkg/domain"
	"smileid/pkg/requestcontext"
)

func TestExtractVersion(t *testing.T) {
	var got domain.APIVersion
	record := func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.APIVersion(r.Context())
	}

	r := chi.NewRouter()
	r.Get("/services", record)
	r.Route("/v2", func(v2 chi.Router) {
		v2.Use(ExtractVersion(domain.APIVersionV2))
		v2.Get("/services", record)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v2/services", nil))
	assert.Equal(t, domain.APIVersionV2, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/services", nil))
	assert.True(t, got.IsNil())
}
