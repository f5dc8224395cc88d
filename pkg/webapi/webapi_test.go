package webapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"smileid/internal/fakeservice"
	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/images"
	"smileid/pkg/platform/audit"
	"smileid/pkg/platform/audit/store/memory"
	"smileid/pkg/platform/metrics"
	"smileid/pkg/platform/sentinel"
	"smileid/pkg/testutil"
	"smileid/pkg/validation"
	"smileid/pkg/webapi/mocks"
)

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks SchemaCache,Sleeper

// recordingSleeper returns immediately and remembers every requested wait.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}

type WebAPISuite struct {
	suite.Suite
	ctx     context.Context
	fake    *fakeservice.Service
	server  *httptest.Server
	events  *memory.InMemoryStore
	sleeper *recordingSleeper
	metrics *metrics.Metrics
}

func TestWebAPISuite(t *testing.T) {
	suite.Run(t, new(WebAPISuite))
}

func (s *WebAPISuite) SetupTest() {
	s.ctx = context.Background()
	s.startFake(fakeservice.Config{CompleteAfter: 2})
}

func (s *WebAPISuite) TearDownTest() {
	s.server.Close()
}

func (s *WebAPISuite) startFake(cfg fakeservice.Config) {
	if s.server != nil {
		s.server.Close()
	}
	cfg.PartnerID = "001"
	cfg.Key = testutil.ServiceKey(s.T()).Private
	fake, err := fakeservice.New(cfg)
	s.Require().NoError(err)
	s.fake = fake
	s.server = httptest.NewServer(fakeservice.NewHandler(fake, fakeservice.WithLogger(discardLogger())).Router())
	s.events = memory.NewInMemoryStore()
	s.sleeper = &recordingSleeper{}
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
}

func (s *WebAPISuite) newClient(opts ...Option) *Client {
	base := []Option{
		WithLogger(discardLogger()),
		WithPublisher(s.events),
		WithSleeper(s.sleeper),
		WithMetrics(s.metrics),
		WithPollPolicy(5, 3*time.Second),
	}
	c, err := New("001", testutil.ServiceKey(s.T()).PublicPEM, s.server.URL, append(base, opts...)...)
	s.Require().NoError(err)
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func selfie(t *testing.T) images.Image {
	return images.FromBase64(images.SelfieBase64, base64.StdEncoding.EncodeToString(testutil.JPEG(t)))
}

func enrollRequest(t *testing.T, opts Options) JobRequest {
	return JobRequest{
		PartnerParams: domain.PartnerParams{UserID: "u-1", JobID: "j-1", JobType: domain.JobTypeRegisterUser},
		Images: []images.Image{
			selfie(t),
			{Type: images.IDCardFile, Data: testutil.PNG(t)},
		},
		Options: opts,
	}
}

func (s *WebAPISuite) TestSubmitJob_WithCallback() {
	c := s.newClient(WithCallbackURL("https://partner.example/callback"))

	res, err := c.SubmitJob(s.ctx, enrollRequest(s.T(), Options{}))
	s.Require().NoError(err)

	s.True(res.Success)
	s.Equal(domain.JobID("j-1"), res.JobID)
	s.NotEmpty(res.SmileJobID)
	s.Nil(res.JobStatus)
	s.Equal(1, s.fake.Calls(fakeservice.EndpointUpload))
	s.Equal(1, s.fake.Calls(fakeservice.EndpointArchive))
	s.Zero(s.fake.Calls(fakeservice.EndpointJobStatus))
	s.Equal([]audit.Action{
		audit.ActionUploadSlotAllocated,
		audit.ActionArchiveUploaded,
		audit.ActionJobSubmitted,
	}, s.events.Actions("j-1"))
	s.InDelta(1, promtestutil.ToFloat64(s.metrics.JobOutcome.WithLabelValues("register_user", "submitted")), 0)

	archive, ok := s.fake.Archive(res.SmileJobID)
	s.Require().True(ok)
	s.Equal("application/zip", archive.ContentType)
	info := readInfo(s.T(), archive.Bytes)
	misc := info["misc_information"].(map[string]any)
	s.Equal("https://partner.example/callback", misc["callback_url"])
	s.Equal("001", misc["smile_client_id"])
	s.Equal(false, info["id_info"].(map[string]any)["entered"])
}

func (s *WebAPISuite) TestSubmitJob_PollsUntilComplete() {
	c := s.newClient()

	res, err := c.SubmitJob(s.ctx, enrollRequest(s.T(), Options{ReturnJobStatus: true, ReturnHistory: true}))
	s.Require().NoError(err)

	s.Require().NotNil(res.JobStatus)
	s.True(res.JobStatus.JobComplete)
	s.NotEmpty(res.JobStatus.History)
	s.Equal(3, s.fake.Calls(fakeservice.EndpointJobStatus), "no query after completion")
	s.Equal([]time.Duration{3 * time.Second, 3 * time.Second}, s.sleeper.waits)
	s.Equal(audit.ActionJobCompleted, s.events.Actions("j-1")[len(s.events.Actions("j-1"))-1])
}

func (s *WebAPISuite) TestSubmitJob_PollBudgetExhausted() {
	s.startFake(fakeservice.Config{CompleteAfter: -1})
	c := s.newClient(WithPollPolicy(3, time.Second))

	_, err := c.SubmitJob(s.ctx, enrollRequest(s.T(), Options{ReturnJobStatus: true}))
	s.Require().Error(err)

	s.True(dErrors.HasCode(err, dErrors.CodeServerError))
	s.Equal("Failed to get job status in 3 attempts: user_id=u-1, job_id=j-1", err.Error())
	s.Equal(3, s.fake.Calls(fakeservice.EndpointJobStatus))
	s.Equal(2, s.sleeper.count())
	s.Contains(s.events.Actions("j-1"), audit.ActionJobFailed)
}

func (s *WebAPISuite) TestSubmitJob_UnconfirmedSignatureIsFatal() {
	s.startFake(fakeservice.Config{CompleteAfter: 0})
	s.fake.SignResponsesBadly(true)
	c := s.newClient()

	_, err := c.SubmitJob(s.ctx, enrollRequest(s.T(), Options{ReturnJobStatus: true}))
	s.Require().Error(err)

	s.True(dErrors.HasCode(err, dErrors.CodeServerError))
	s.Contains(err.Error(), "Unable to confirm validity of the job_status response")
	s.Equal(1, s.fake.Calls(fakeservice.EndpointJobStatus), "a complete but unconfirmed response stops polling")
	s.Contains(s.events.Actions("j-1"), audit.ActionSignatureUnconfirmed)
}

func (s *WebAPISuite) TestSubmitJob_ArchiveUploadFailure() {
	s.fake.FailNext(fakeservice.EndpointArchive, 1)
	c := s.newClient(WithCallbackURL("https://partner.example/callback"))

	_, err := c.SubmitJob(s.ctx, enrollRequest(s.T(), Options{}))
	s.Require().Error(err)

	s.True(dErrors.HasCode(err, dErrors.CodeServerError))
	s.Contains(err.Error(), "Failed to upload file to")
	s.Equal(1, s.fake.Calls(fakeservice.EndpointArchive), "uploads are not retried")
}

func (s *WebAPISuite) TestSubmitJob_UploadSlotFailure() {
	s.fake.FailNext(fakeservice.EndpointUpload, 1)
	c := s.newClient(WithCallbackURL("https://partner.example/callback"))

	_, err := c.SubmitJob(s.ctx, enrollRequest(s.T(), Options{}))
	s.Require().Error(err)

	s.Contains(err.Error(), "Failed to POST "+s.server.URL+"/upload. Server response: 500")
	s.Zero(s.fake.Calls(fakeservice.EndpointArchive))
}

func (s *WebAPISuite) TestSubmitJob_InputErrorsMakeNoRequests() {
	c := s.newClient()

	s.Run("neither callback nor job status", func() {
		_, err := c.SubmitJob(s.ctx, enrollRequest(s.T(), Options{}))
		s.Require().Error(err)
		s.Equal("Please choose to either get your response via the callback or job status query", err.Error())
	})

	s.Run("no selfie", func() {
		req := enrollRequest(s.T(), Options{ReturnJobStatus: true})
		req.Images = req.Images[1:]
		_, err := c.SubmitJob(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("invalid id info", func() {
		req := enrollRequest(s.T(), Options{ReturnJobStatus: true})
		req.IDInfo = map[string]any{"country": "NG", "id_type": "BVN"}
		_, err := c.SubmitJob(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(err.Error(), "id_number")
	})

	s.Run("unsupported job type", func() {
		req := enrollRequest(s.T(), Options{ReturnJobStatus: true})
		req.PartnerParams.JobType = 3
		_, err := c.SubmitJob(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Zero(s.fake.Calls(fakeservice.EndpointUpload))
	s.Zero(s.fake.Calls(fakeservice.EndpointServices))
}

func (s *WebAPISuite) TestSubmitJob_DocumentOnlyJobUsesIDVerification() {
	c := s.newClient()

	res, err := c.SubmitJob(s.ctx, JobRequest{
		PartnerParams: domain.PartnerParams{UserID: "u-5", JobID: "j-5", JobType: domain.JobTypeVerifyDocument},
		IDInfo:        map[string]any{"country": "NG", "id_type": "BVN", "id_number": "00000000000"},
	})
	s.Require().NoError(err)

	s.Require().NotNil(res.IDVerification)
	s.Equal(FlexString(SuccessResultCode), res.IDVerification.ResultCode)
	s.Equal(domain.JobID("j-5"), res.JobID)
	s.Zero(s.fake.Calls(fakeservice.EndpointUpload))
	s.Equal(1, s.fake.Calls(fakeservice.EndpointIDVerification))
}

func (s *WebAPISuite) TestSubmitJob_DocumentOnlyPayloadKeepsSignedFields() {
	var (
		mu   sync.Mutex
		body map[string]any
	)
	router := fakeservice.NewHandler(s.fake, fakeservice.WithLogger(discardLogger())).Router()
	s.server.Close()
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/id_verification") {
			raw, _ := io.ReadAll(r.Body)
			mu.Lock()
			_ = json.Unmarshal(raw, &body)
			mu.Unlock()
			r.Body = io.NopCloser(bytes.NewReader(raw))
		}
		router.ServeHTTP(w, r)
	}))
	c := s.newClient()

	_, err := c.SubmitJob(s.ctx, JobRequest{
		PartnerParams: domain.PartnerParams{UserID: "u-5", JobID: "j-5", JobType: domain.JobTypeVerifyDocument},
		IDInfo: map[string]any{
			"country":    "NG",
			"id_type":    "BVN",
			"id_number":  "00000000000",
			"partner_id": "999",
			"sec_key":    "forged",
			"timestamp":  "0",
		},
	})
	s.Require().NoError(err, "the service only accepts the client's own token")

	mu.Lock()
	defer mu.Unlock()
	s.Require().NotNil(body)
	s.Equal("001", body["partner_id"])
	s.NotEqual("forged", body["sec_key"])
	s.Contains(body["sec_key"], "|")
	s.IsType(float64(0), body["timestamp"])
	s.Equal("j-5", body["partner_params"].(map[string]any)["job_id"])
}

func (s *WebAPISuite) TestVerifyDocument() {
	req := DocumentRequest{
		Country:   "NG",
		IDType:    "DRIVERS_LICENSE",
		IDNumber:  "ABC000000000",
		FirstName: "Ada",
		LastName:  "Obi",
		DOB:       "1990-01-31",
	}

	s.Run("passed", func() {
		res, err := s.newClient().VerifyDocument(s.ctx, req)
		s.Require().NoError(err)
		s.Equal(FlexString("1012"), res.ResultCode)
		s.Equal("NG", res.Raw["Country"])
	})

	s.Run("rejected", func() {
		s.startFake(fakeservice.Config{ResultCode: "1013"})
		_, err := s.newClient().VerifyDocument(s.ctx, req)
		s.Require().Error(err)

		var failed *VerificationFailedError
		s.Require().True(errors.As(err, &failed))
		s.Equal("1013", failed.ResultCode)
		s.Equal("1013", failed.Response["ResultCode"])
		s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
		s.InDelta(1, promtestutil.ToFloat64(s.metrics.JobOutcome.WithLabelValues("verify_document", "rejected")), 0)
	})

	s.Run("missing required field", func() {
		missing := req
		missing.LastName = ""
		_, err := s.newClient().VerifyDocument(s.ctx, missing)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Zero(s.fake.Calls(fakeservice.EndpointIDVerification))
	})
}

func (s *WebAPISuite) TestVersionedEndpoints() {
	c := s.newClient(WithAPIVersion(domain.APIVersionV2), WithCallbackURL("https://partner.example/callback"))

	_, err := c.SubmitJob(s.ctx, enrollRequest(s.T(), Options{}))
	s.Require().NoError(err)
	s.Equal(1, s.fake.Calls(fakeservice.EndpointUpload))

	status, err := c.GetJobStatus(s.ctx, "u-1", "j-1", false, false)
	s.Require().NoError(err)
	s.False(status.JobComplete)
}

func (s *WebAPISuite) TestGetJobStatus_ValidatesIDs() {
	_, err := s.newClient().GetJobStatus(s.ctx, "", "j-1", false, false)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Zero(s.fake.Calls(fakeservice.EndpointJobStatus))
}

func (s *WebAPISuite) TestPollJobStatus_Cancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	s.startFake(fakeservice.Config{CompleteAfter: -1})
	c := s.newClient()
	cancel()

	_, err := c.PollJobStatus(ctx, PollRequest{UserID: "u-1", JobID: "j-1"})
	s.Require().Error(err)
	s.True(errors.Is(err, context.Canceled))
}

func (s *WebAPISuite) TestServices_LiveValidation() {
	c := s.newClient()

	schema, err := c.Services(s.ctx)
	s.Require().NoError(err)
	s.Contains(schema.Countries(), "KE")

	_, err = c.ValidateIDInfo(s.ctx, map[string]any{"country": "KE", "id_type": "NATIONAL_ID", "id_number": "1"}, true)
	s.Require().NoError(err)
	s.Equal(2, s.fake.Calls(fakeservice.EndpointServices), "no cache configured")
}

func TestPollJobStatus_SleepsBetweenAttemptsOnly(t *testing.T) {
	key := testutil.ServiceKey(t)
	fake, err := fakeservice.New(fakeservice.Config{PartnerID: "001", Key: key.Private, CompleteAfter: 1})
	require.NoError(t, err)
	server := httptest.NewServer(fakeservice.NewHandler(fake, fakeservice.WithLogger(discardLogger())).Router())
	t.Cleanup(server.Close)

	ctrl := gomock.NewController(t)
	sleeper := mocks.NewMockSleeper(ctrl)
	sleeper.EXPECT().Sleep(gomock.Any(), 250*time.Millisecond).Return(nil).Times(1)

	c, err := New("001", key.PublicPEM, server.URL, WithSleeper(sleeper), WithLogger(discardLogger()))
	require.NoError(t, err)

	status, err := c.PollJobStatus(context.Background(), PollRequest{
		UserID:      "u-1",
		JobID:       "j-1",
		MaxAttempts: 4,
		Delay:       250 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, status.JobComplete)
	assert.Equal(t, 2, fake.Calls(fakeservice.EndpointJobStatus))
}

func TestPollJobStatus_SleepErrorStopsPolling(t *testing.T) {
	key := testutil.ServiceKey(t)
	fake, err := fakeservice.New(fakeservice.Config{PartnerID: "001", Key: key.Private, CompleteAfter: -1})
	require.NoError(t, err)
	server := httptest.NewServer(fakeservice.NewHandler(fake, fakeservice.WithLogger(discardLogger())).Router())
	t.Cleanup(server.Close)

	ctrl := gomock.NewController(t)
	sleeper := mocks.NewMockSleeper(ctrl)
	sleeper.EXPECT().Sleep(gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded)

	c, err := New("001", key.PublicPEM, server.URL, WithSleeper(sleeper), WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = c.PollJobStatus(context.Background(), PollRequest{UserID: "u-1", JobID: "j-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, fake.Calls(fakeservice.EndpointJobStatus))
}

func TestServices_SchemaCache(t *testing.T) {
	key := testutil.ServiceKey(t)
	fake, err := fakeservice.New(fakeservice.Config{PartnerID: "001", Key: key.Private})
	require.NoError(t, err)
	server := httptest.NewServer(fakeservice.NewHandler(fake, fakeservice.WithLogger(discardLogger())).Router())
	t.Cleanup(server.Close)
	cacheKey := server.URL + "|"

	testutil.Given(t, "an empty cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockSchemaCache(ctrl)
		gomock.InOrder(
			cache.EXPECT().Get(gomock.Any(), cacheKey).Return(nil, sentinel.ErrNotFound),
			cache.EXPECT().Set(gomock.Any(), cacheKey, gomock.Any()).Return(nil),
		)

		c, err := New("001", key.PublicPEM, server.URL, WithSchemaCache(cache), WithLogger(discardLogger()))
		require.NoError(t, err)

		testutil.Then(t, "the schema is fetched and stored", func(t *testing.T) {
			schema, err := c.Services(context.Background())
			require.NoError(t, err)
			assert.Contains(t, schema.Countries(), "GH")
			assert.Equal(t, 1, fake.Calls(fakeservice.EndpointServices))
		})
	})

	testutil.Given(t, "a fresh cached schema", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockSchemaCache(ctrl)
		cached := validation.Schema{"ZZ": {"CARD": {"id_number"}}}
		cache.EXPECT().Get(gomock.Any(), cacheKey).Return(cached, nil)

		c, err := New("001", key.PublicPEM, server.URL, WithSchemaCache(cache), WithLogger(discardLogger()))
		require.NoError(t, err)

		testutil.Then(t, "no request is made", func(t *testing.T) {
			before := fake.Calls(fakeservice.EndpointServices)
			schema, err := c.Services(context.Background())
			require.NoError(t, err)
			assert.Equal(t, cached, schema)
			assert.Equal(t, before, fake.Calls(fakeservice.EndpointServices))
		})
	})

	testutil.Given(t, "a failing cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockSchemaCache(ctrl)
		cache.EXPECT().Get(gomock.Any(), cacheKey).Return(nil, sentinel.ErrUnavailable)
		cache.EXPECT().Set(gomock.Any(), cacheKey, gomock.Any()).Return(sentinel.ErrUnavailable)

		c, err := New("001", key.PublicPEM, server.URL, WithSchemaCache(cache), WithLogger(discardLogger()))
		require.NoError(t, err)

		testutil.Then(t, "the live schema is still returned", func(t *testing.T) {
			schema, err := c.Services(context.Background())
			require.NoError(t, err)
			assert.NotEmpty(t, schema)
		})
	})
}

func TestServices_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	key := testutil.ServiceKey(t)
	fake, err := fakeservice.New(fakeservice.Config{PartnerID: "001", Key: key.Private})
	require.NoError(t, err)
	router := fakeservice.NewHandler(fake, fakeservice.WithLogger(discardLogger())).Router()

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	c, err := New("001", key.PublicPEM, server.URL, WithLogger(discardLogger()))
	require.NoError(t, err)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Services(first)
		firstErr <- err
	}()
	<-started

	type result struct {
		schema validation.Schema
		err    error
	}
	second := make(chan result, 1)
	go func() {
		schema, err := c.Services(context.Background())
		second <- result{schema, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Contains(t, res.schema.Countries(), "NG")
}

func TestServices_ServerError(t *testing.T) {
	key := testutil.ServiceKey(t)
	fake, err := fakeservice.New(fakeservice.Config{PartnerID: "001", Key: key.Private})
	require.NoError(t, err)
	fake.FailNext(fakeservice.EndpointServices, 1)
	server := httptest.NewServer(fakeservice.NewHandler(fake, fakeservice.WithLogger(discardLogger())).Router())
	t.Cleanup(server.Close)

	c, err := New("001", key.PublicPEM, server.URL, WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = c.ValidateIDInfo(context.Background(), map[string]any{"country": "NG", "id_type": "BVN", "id_number": "1"}, true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeServerError))
}

func readInfo(t *testing.T, archive []byte) map[string]any {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != "info.json" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		var info map[string]any
		require.NoError(t, json.NewDecoder(rc).Decode(&info))
		return info
	}
	t.Fatal("archive has no info.json")
	return nil
}
