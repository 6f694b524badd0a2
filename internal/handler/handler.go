package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"registration/internal/intake"
	"registration/internal/metrics"
	"registration/internal/registration"
)

// Version is reported on the metadata endpoint.
const Version = "1.0.0"

type Handler struct {
	svc       *registration.Service
	validator registration.Validator
	reader    intake.Reader
	logger    *slog.Logger
	started   time.Time
	// exposeErrors adds internal error text to 500 responses.
	exposeErrors bool
}

func New(svc *registration.Service, validator registration.Validator, reader intake.Reader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:       svc,
		validator: validator,
		reader:    reader,
		logger:    logger,
		started:   time.Now(),
	}
}

// ---------- Metadata ----------

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Team Registration API",
		"version": Version,
		"endpoints": gin.H{
			"health":        "GET /api/health",
			"register":      "POST /api/register",
			"registrations": "GET /api/registrations",
			"registration":  "GET /api/registrations/:id",
			"updateStatus":  "PATCH /api/registrations/:id/status",
			"payment":       "GET /api/registrations/:id/payment",
		},
	})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.svc.Ping(ctx); err != nil {
		h.logger.Warn("store ping failed", slog.Any("error", err))
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
		"storage":   h.svc.StoreInfo(),
	})
}

// ---------- Submissions ----------

// Register accepts a multipart submission: teamName, teamSize,
// participants (JSON array), portfolioUrl and the paymentScreenshot file.
func (h *Handler) Register(c *gin.Context) {
	limit := h.reader.MaxBytes
	if limit <= 0 {
		limit = intake.DefaultMaxBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*limit+1<<20)
	if err := c.Request.ParseMultipartForm(limit + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.reject(c, intake.TooLarge(limit))
			return
		}
		h.reject(c, registration.Invalid(registration.ErrMissingField, "Invalid form data"))
		return
	}

	sub := registration.Submission{
		TeamName:     c.PostForm("teamName"),
		TeamSize:     c.PostForm("teamSize"),
		Participants: c.PostForm("participants"),
		PortfolioURL: c.PostForm("portfolioUrl"),
	}

	if fh, err := c.FormFile("paymentScreenshot"); err == nil {
		att, err := h.reader.Read(fh)
		if err != nil {
			h.reject(c, err)
			return
		}
		sub.Attachment = att
	}

	in, err := h.validator.Validate(sub)
	if err != nil {
		h.reject(c, err)
		return
	}

	reg, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"message":        "Registration successful",
		"registrationId": reg.ID,
		"data":           reg.Summary(),
	})
}

// ---------- Admin view ----------

func (h *Handler) ListRegistrations(c *gin.Context) {
	regs, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"count":         len(regs),
		"registrations": regs,
	})
}

func (h *Handler) GetRegistration(c *gin.Context) {
	reg, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "registration": reg})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, registration.Invalid(registration.ErrInvalidStatus, "Invalid request body"))
		return
	}

	reg, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Status updated successfully",
		"registration": reg,
	})
}

func (h *Handler) PaymentScreenshot(c *gin.Context) {
	proof, err := h.svc.PaymentAttachment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	// Uploads are untrusted: never render them on the API origin.
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": proof.Filename}))
	c.Header("Content-Security-Policy", "sandbox; default-src 'none'")
	c.Data(http.StatusOK, proof.ContentType, proof.Data)
}

func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorBody{Message: "Endpoint not found"})
}

// ---------- Errors ----------

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) reject(c *gin.Context, err error) {
	metrics.SubmissionsRejected.WithLabelValues(rejectReason(err)).Inc()
	h.writeError(c, err)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *registration.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorBody{Message: verr.Message, Error: errorCode(err)})
	case errors.Is(err, registration.ErrNoInlineAttachment):
		c.JSON(http.StatusNotFound, errorBody{Message: registration.MsgPaymentProofNotStored})
	case errors.Is(err, registration.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody{Message: registration.MsgRegistrationNotFound})
	default:
		h.logger.Error("request failed",
			slog.String("method", c.Request.Method), slog.String("path", c.Request.URL.Path), slog.Any("error", err))
		body := errorBody{Message: "Internal server error"}
		if h.exposeErrors {
			body.Error = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, registration.ErrFileTooLarge):
		return "FILE_TOO_LARGE"
	case errors.Is(err, registration.ErrUnsupportedMediaType):
		return "UNSUPPORTED_MEDIA_TYPE"
	}
	return ""
}

func rejectReason(err error) string {
	for _, r := range []struct {
		err   error
		label string
	}{
		{registration.ErrMissingField, "missing_field"},
		{registration.ErrTeamSizeRange, "team_size"},
		{registration.ErrParticipantsMalformed, "participants_malformed"},
		{registration.ErrParticipantCount, "participant_count"},
		{registration.ErrParticipantIncomplete, "participant_incomplete"},
		{registration.ErrAttachmentMissing, "attachment_missing"},
		{registration.ErrFileTooLarge, "file_too_large"},
		{registration.ErrUnsupportedMediaType, "media_type"},
	} {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "other"
}
