package fakeservice

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
	"smileid/pkg/platform/audit"
	"smileid/pkg/platform/httputil"
	"smileid/pkg/platform/middleware/metadata"
	"smileid/pkg/platform/middleware/requesttime"
	"smileid/pkg/platform/middleware/version"
	"smileid/pkg/requestcontext"
)

// Endpoint names used by Calls and FailNext.
const (
	EndpointServices       = "services"
	EndpointUpload         = "upload"
	EndpointArchive        = "archive"
	EndpointJobStatus      = "job_status"
	EndpointIDVerification = "id_verification"
)

const maxArchiveSize = 64 << 20

type signedRequest struct {
	SecKey    string `json:"sec_key"`
	Timestamp int64  `json:"timestamp"`
}

type uploadRequest struct {
	signedRequest
	FileName      string               `json:"file_name"`
	SmileClientID string               `json:"smile_client_id"`
	PartnerParams domain.PartnerParams `json:"partner_params"`
	CallbackURL   string               `json:"callback_url"`
}

type jobStatusRequest struct {
	signedRequest
	PartnerID  string        `json:"partner_id"`
	JobID      domain.JobID  `json:"job_id"`
	UserID     domain.UserID `json:"user_id"`
	ImageLinks bool          `json:"image_links"`
	History    bool          `json:"history"`
}

type idVerificationRequest struct {
	signedRequest
	PartnerID     string               `json:"partner_id"`
	PartnerParams domain.PartnerParams `json:"partner_params"`
	Country       string               `json:"country"`
	IDType        string               `json:"id_type"`
	IDNumber      string               `json:"id_number"`
}

// Handler serves the fake's HTTP surface.
type Handler struct {
	svc       *Service
	logger    *slog.Logger
	publisher audit.Publisher
	clock     func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithPublisher records accepted requests as audit events.
func WithPublisher(p audit.Publisher) HandlerOption {
	return func(h *Handler) {
		h.publisher = p
	}
}

// WithClock fixes the clock used to timestamp responses.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = now
	}
}

// NewHandler creates a Handler for svc.
func NewHandler(svc *Service, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router mounts the unversioned routes at the root and the same routes
// under every supported version prefix. Archive uploads are unversioned.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.MiddlewareWithClock(h.clock))

	h.Register(r)
	r.Put("/uploads/{smileJobID}", h.HandleArchive)
	for _, v := range domain.SupportedVersions() {
		if v.IsNil() {
			continue
		}
		r.Route("/"+v.String(), func(vr chi.Router) {
			vr.Use(version.ExtractVersion(v))
			h.Register(vr)
		})
	}
	return r
}

// Register mounts the versionable endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/services", h.HandleServices)
	r.Post("/services", h.HandleServices)
	r.Post("/upload", h.HandleUpload)
	r.Post("/job_status", h.HandleJobStatus)
	r.Post("/id_verification", h.HandleIDVerification)
}

// HandleServices serves the validation schema.
func (h *Handler) HandleServices(w http.ResponseWriter, r *http.Request) {
	if h.svc.record(EndpointServices) {
		h.fail(w, r, EndpointServices)
		return
	}
	h.logRequest(r, EndpointServices)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id_types": h.svc.cfg.Schema})
}

// HandleUpload allocates an upload slot.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if h.svc.record(EndpointUpload) {
		h.fail(w, r, EndpointUpload)
		return
	}
	req, ok := httputil.DecodeJSON[uploadRequest](w, r, h.logger)
	if !ok {
		return
	}
	if !h.authorize(w, r, req.SmileClientID, req.signedRequest) {
		return
	}
	if err := req.PartnerParams.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	smileJobID := h.svc.allocateSlot(req.PartnerParams)
	h.logRequest(r, EndpointUpload, "job_id", req.PartnerParams.JobID, "smile_job_id", smileJobID)
	h.emit(r.Context(), audit.Event{
		Action:     audit.ActionUploadSlotAllocated,
		PartnerID:  req.SmileClientID,
		UserID:     req.PartnerParams.UserID,
		JobID:      req.PartnerParams.JobID,
		JobType:    req.PartnerParams.JobType,
		SmileJobID: smileJobID,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"upload_url":   h.baseURL(r) + "/uploads/" + smileJobID,
		"smile_job_id": smileJobID,
	})
}

// HandleArchive accepts the job archive for an allocated slot.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	if h.svc.record(EndpointArchive) {
		h.fail(w, r, EndpointArchive)
		return
	}
	smileJobID := chi.URLParam(r, "smileJobID")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxArchiveSize))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read archive"))
		return
	}
	if err := checkArchive(body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !h.svc.storeArchive(Archive{SmileJobID: smileJobID, ContentType: r.Header.Get("Content-Type"), Bytes: body}) {
		httputil.WriteErrorStatus(w, http.StatusNotFound, dErrors.Newf(dErrors.CodeInvalidInput, "no upload slot %s", smileJobID))
		return
	}
	h.logRequest(r, EndpointArchive, "smile_job_id", smileJobID, "bytes", len(body))
	h.emit(r.Context(), audit.Event{Action: audit.ActionArchiveUploaded, SmileJobID: smileJobID})
	w.WriteHeader(http.StatusOK)
}

// HandleJobStatus reports a job's progress with a signed timestamp.
func (h *Handler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	if h.svc.record(EndpointJobStatus) {
		h.fail(w, r, EndpointJobStatus)
		return
	}
	req, ok := httputil.DecodeJSON[jobStatusRequest](w, r, h.logger)
	if !ok {
		return
	}
	if !h.authorize(w, r, req.PartnerID, req.signedRequest) {
		return
	}
	if req.JobID.IsNil() || req.UserID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "job_id and user_id are required"))
		return
	}

	complete := h.svc.poll(req.JobID)
	ts := requestcontext.Now(r.Context()).Unix()
	signed := ts
	if h.svc.signBadly() {
		signed++
	}
	resp := map[string]any{
		"job_complete": complete,
		"job_success":  complete,
		"code":         "2301",
		"timestamp":    strconv.FormatInt(ts, 10),
		"signature":    h.svc.hash(signed),
	}
	if complete {
		resp["code"] = "2302"
		resp["result"] = map[string]any{
			"ResultCode": "0810",
			"ResultText": "Enroll User",
			"PartnerParams": map[string]any{
				"user_id": req.UserID,
				"job_id":  req.JobID,
			},
		}
		if req.History {
			resp["history"] = []any{}
		}
		if req.ImageLinks {
			resp["image_links"] = map[string]any{}
		}
	}
	h.logRequest(r, EndpointJobStatus, "job_id", req.JobID, "job_complete", complete)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleIDVerification answers a document check.
func (h *Handler) HandleIDVerification(w http.ResponseWriter, r *http.Request) {
	if h.svc.record(EndpointIDVerification) {
		h.fail(w, r, EndpointIDVerification)
		return
	}
	req, ok := httputil.DecodeJSON[idVerificationRequest](w, r, h.logger)
	if !ok {
		return
	}
	if !h.authorize(w, r, req.PartnerID, req.signedRequest) {
		return
	}
	if req.PartnerParams.JobType != domain.JobTypeVerifyDocument {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "job_type must be 5"))
		return
	}

	code, text := "1012", "Valid ID"
	if h.svc.cfg.ResultCode != "" && h.svc.cfg.ResultCode != code {
		code, text = h.svc.cfg.ResultCode, "Invalid ID"
	}
	smileJobID := h.svc.allocateSlot(req.PartnerParams)
	h.logRequest(r, EndpointIDVerification, "job_id", req.PartnerParams.JobID, "result_code", code)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"SmileJobID": smileJobID,
		"ResultCode": code,
		"ResultText": text,
		"Country":    req.Country,
		"IDType":     req.IDType,
		"IDNumber":   req.IDNumber,
		"PartnerParams": map[string]any{
			"user_id":  req.PartnerParams.UserID,
			"job_id":   req.PartnerParams.JobID,
			"job_type": req.PartnerParams.JobType,
		},
	})
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, partnerID string, req signedRequest) bool {
	if partnerID != h.svc.cfg.PartnerID.String() && partnerID != h.svc.cfg.PartnerID.Canonical() {
		httputil.WriteErrorStatus(w, http.StatusUnauthorized, dErrors.Newf(dErrors.CodeInvalidInput, "unknown partner %q", partnerID))
		return false
	}
	if err := h.svc.verifySecKey(req.SecKey, req.Timestamp); err != nil {
		h.logger.WarnContext(r.Context(), "rejected sec_key", "path", r.URL.Path, "reason", err.Error())
		httputil.WriteErrorStatus(w, http.StatusUnauthorized, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid sec_key"))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, endpoint string) {
	h.logger.InfoContext(r.Context(), "injected failure", "endpoint", endpoint)
	httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "injected failure"))
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.svc.cfg.BaseURL != "" {
		return h.svc.cfg.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (h *Handler) logRequest(r *http.Request, endpoint string, args ...any) {
	ctx := r.Context()
	client := requestcontext.CallingClient(ctx)
	base := []any{
		"endpoint", endpoint,
		"api_version", requestcontext.APIVersion(ctx).String(),
		"client", client.Name,
		"client_version", client.Version,
		"client_ip", requestcontext.ClientIP(ctx),
	}
	h.logger.InfoContext(ctx, "request served", append(base, args...)...)
}

func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.publisher == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	if event.PartnerID == "" {
		event.PartnerID = h.svc.cfg.PartnerID.String()
	}
	if err := h.publisher.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to emit event", "action", event.Action, "error", err)
	}
}

func checkArchive(body []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "archive is not a zip")
	}
	for _, f := range zr.File {
		if f.Name != "info.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "info.json is unreadable")
		}
		defer rc.Close()
		var info map[string]any
		if err := json.NewDecoder(rc).Decode(&info); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "info.json is not json")
		}
		return nil
	}
	return dErrors.New(dErrors.CodeInvalidInput, "archive has no info.json")
}
