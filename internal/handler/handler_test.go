package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"registration/internal/intake"
	"registration/internal/registration"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type testServer struct {
	router *gin.Engine
	store  *registration.MemoryStore
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := registration.NewMemoryStore()
	svc := registration.NewService(st, intake.InlineStore{}, nil, nil, logger)
	h := New(svc, registration.Validator{}, intake.Reader{MaxBytes: intake.DefaultMaxBytes}, logger)
	return &testServer{router: NewRouter(h, opts), store: st}
}

type form struct {
	fields   map[string]string
	filename string
	fileType string
	file     []byte
}

func participantsJSON(n int) string {
	ps := make([]map[string]string, n)
	for i := range ps {
		ps[i] = map[string]string{
			"name": "Member", "email": "m@example.com", "phone": "12345",
			"college": "NIT", "departmentYear": "CSE 2",
		}
	}
	raw, _ := json.Marshal(ps)
	return string(raw)
}

func validForm(size, count int) form {
	return form{
		fields: map[string]string{
			"teamName":     "Alpha",
			"teamSize":     strconv.Itoa(size),
			"participants": participantsJSON(count),
			"portfolioUrl": "https://alpha.dev",
		},
		filename: "payment.png",
		fileType: "image/png",
		file:     pngBytes,
	}
}

func (f form) request(t *testing.T) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range f.fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if f.file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="paymentScreenshot"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.fileType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/register", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) register(t *testing.T) string {
	t.Helper()
	rec := s.do(validForm(2, 2).request(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["registrationId"].(string)
}

func jpegForm(size int) form {
	f := validForm(2, 2)
	f.filename, f.fileType = "receipt.jpg", "image/jpeg"
	f.file = append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0}, size-4)...)
	return f
}

func TestRegister_Created(t *testing.T) {
	for _, tc := range []struct {
		name string
		form form
	}{
		{"small png", validForm(2, 2)},
		{"2MB jpeg", jpegForm(2 << 20)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, RouterOptions{})

			rec := s.do(tc.form.request(t))
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			body := decode(t, rec)
			require.Equal(t, true, body["success"])
			require.Equal(t, "Registration successful", body["message"])
			id := body["registrationId"].(string)
			require.NotEmpty(t, id)

			data := body["data"].(map[string]any)
			require.Equal(t, id, data["id"])
			require.Equal(t, float64(100), data["entryFee"])
			require.Equal(t, "pending", data["status"])

			all, err := s.store.List(context.Background())
			require.NoError(t, err)
			require.Len(t, all, 1)
			require.Equal(t, tc.form.fileType, all[0].PaymentScreenshot.ContentType)
			require.Equal(t, int64(len(tc.form.file)), all[0].PaymentScreenshot.Size)
		})
	}
}

func TestRegister_ValidationFailures(t *testing.T) {
	for _, tc := range []struct {
		name    string
		form    form
		message string
	}{
		{"team size too big", validForm(4, 4), registration.MsgTeamSizeRange},
		{"count mismatch", validForm(3, 2), registration.MsgParticipantCount},
		{"no file", func() form { f := validForm(1, 1); f.file = nil; return f }(), registration.MsgAttachmentMissing},
		{"missing team name", func() form { f := validForm(1, 1); delete(f.fields, "teamName"); return f }(), registration.MsgMissingFields},
		{"bad participants", func() form { f := validForm(1, 1); f.fields["participants"] = "{oops"; return f }(), registration.MsgParticipantsMalformed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, RouterOptions{})
			rec := s.do(tc.form.request(t))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := decode(t, rec)
			require.Equal(t, false, body["success"])
			require.Equal(t, tc.message, body["message"])

			all, err := s.store.List(context.Background())
			require.NoError(t, err)
			require.Empty(t, all, "nothing may be persisted on a rejected submission")
		})
	}
}

func TestRegister_FileTooLarge(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	f := validForm(1, 1)
	f.file = append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 6<<20)...)

	rec := s.do(f.request(t))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, "FILE_TOO_LARGE", body["error"])
	require.Equal(t, "File too large. Maximum size is 5MB", body["message"])
}

func TestRegister_UnsupportedMediaType(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	f := validForm(1, 1)
	f.filename, f.fileType, f.file = "notes.txt", "text/plain", []byte("hello")

	rec := s.do(f.request(t))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "UNSUPPORTED_MEDIA_TYPE", body["error"])
	require.Equal(t, registration.MsgUnsupportedMediaType, body["message"])
}

func TestRegister_RateLimited(t *testing.T) {
	s := newTestServer(t, RouterOptions{RateLimitPerMin: 1})
	require.Equal(t, http.StatusCreated, s.do(validForm(1, 1).request(t)).Code)

	rec := s.do(validForm(1, 1).request(t))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, false, decode(t, rec)["success"])
}

func TestRegister_RateLimitIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t, RouterOptions{RateLimitPerMin: 1})

	var codes []int
	for i := 0; i < 5; i++ {
		req := validForm(1, 1).request(t)
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i+1))
		codes = append(codes, s.do(req).Code)
	}
	require.Equal(t, []int{201, 429, 429, 429, 429}, codes)
}

func TestRegister_TrustedProxyForwardsClientIP(t *testing.T) {
	// httptest requests come from 192.0.2.1
	s := newTestServer(t, RouterOptions{RateLimitPerMin: 1, TrustedProxies: []string{"192.0.2.0/24"}})

	for i := 0; i < 3; i++ {
		req := validForm(1, 1).request(t)
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i+1))
		require.Equal(t, http.StatusCreated, s.do(req).Code)
	}

	req := validForm(1, 1).request(t)
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	require.Equal(t, http.StatusTooManyRequests, s.do(req).Code)
}

func TestListAndGet(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	id := s.register(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/registrations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, float64(1), body["count"])
	regs := body["registrations"].([]any)
	require.Len(t, regs, 1)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/registrations/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	reg := decode(t, rec)["registration"].(map[string]any)
	require.Equal(t, id, reg["id"])
	require.Equal(t, "Alpha", reg["teamName"])
	require.Equal(t, false, reg["emailSent"])
	require.NotContains(t, rec.Body.String(), `"data"`, "inline bytes are never serialized")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/registrations/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, registration.MsgRegistrationNotFound, decode(t, rec)["message"])
}

func patchStatus(id, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPatch, "/api/registrations/"+id+"/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUpdateStatus_Idempotent(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	id := s.register(t)

	var states []map[string]any
	for i := 0; i < 2; i++ {
		rec := s.do(patchStatus(id, `{"status":"approved"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		states = append(states, decode(t, rec)["registration"].(map[string]any))
	}
	require.Equal(t, "approved", states[0]["status"])
	require.Equal(t, states[0]["status"], states[1]["status"])
	require.Equal(t, states[0]["teamName"], states[1]["teamName"])
	require.Equal(t, states[0]["entryFee"], states[1]["entryFee"])
}

func TestUpdateStatus_Errors(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	id := s.register(t)

	rec := s.do(patchStatus(id, `{"status":"paid"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, registration.MsgInvalidStatus, decode(t, rec)["message"])

	rec = s.do(patchStatus(id, `not json`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(patchStatus("missing", `{"status":"rejected"}`))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentScreenshot(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	id := s.register(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/registrations/"+id+"/payment", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, pngBytes, rec.Body.Bytes())
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment; filename="))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/registrations/missing/payment", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentScreenshot_ScriptedSVGIsSandboxed(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	f := validForm(1, 1)
	f.filename, f.fileType = "x.svg", "image/svg+xml"
	f.file = []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)

	rec := s.do(f.request(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["registrationId"].(string)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/registrations/"+id+"/payment", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Contains(t, rec.Header().Get("Content-Security-Policy"), "sandbox")
	require.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")

	disposition := rec.Header().Get("Content-Disposition")
	require.True(t, strings.HasPrefix(disposition, "attachment;"), disposition)
	require.Contains(t, disposition, ".svg")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Endpoint not found", body["message"])
}

func TestHealthAndRoot(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, map[string]any{"backend": "memory", "durable": false}, body["storage"])
	require.Contains(t, body, "uptime")
	require.Contains(t, body, "timestamp")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, Version, decode(t, rec)["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	s.register(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "registrations_created_total")
}
