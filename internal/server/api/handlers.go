package api

import (
	"errors"
	"fmt"
	"net/http"

	"cloudpix/internal/server/database"
	"cloudpix/internal/server/service"

	"github.com/labstack/echo/v4"
)

// Handler contains the HTTP handlers for the CloudPix API.
type Handler struct {
	auth   *service.AuthService
	files  *service.FileService
	shares *service.ShareLinkService
	db     *database.DB
}

// NewHandler creates a new handler with the given service dependencies.
func NewHandler(auth *service.AuthService, files *service.FileService, shares *service.ShareLinkService, db *database.DB) *Handler {
	return &Handler{auth: auth, files: files, shares: shares, db: db}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createShareLinkRequest struct {
	ExpirationDays int `json:"expirationDays"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "email and password are required",
		})
	}

	result, err := h.auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "email and password are required",
		})
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleProfile handles GET /api/auth/profile.
func (h *Handler) HandleProfile(c echo.Context) error {
	user, err := h.auth.GetProfile(c.Request().Context(), authedUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// HandleUpload handles POST /api/files.
// Accepts a multipart form with a "file" field.
func (h *Handler) HandleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	file, err := h.files.UploadFile(
		c.Request().Context(),
		authedUserID(c),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		src,
	)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, file)
}

// HandleListFiles handles GET /api/files.
func (h *Handler) HandleListFiles(c echo.Context) error {
	files, err := h.files.GetUserFiles(c.Request().Context(), authedUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"files": files})
}

// HandleGetFile handles GET /api/files/:id.
func (h *Handler) HandleGetFile(c echo.Context) error {
	file, err := h.files.GetFileByID(c.Request().Context(), c.Param("id"), authedUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, file)
}

// HandleDownloadFile handles GET /api/files/:id/download.
// Streams the blob as an attachment.
func (h *Handler) HandleDownloadFile(c echo.Context) error {
	file, rc, err := h.files.DownloadFile(c.Request().Context(), c.Param("id"), authedUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", file.FileName))
	return c.Stream(http.StatusOK, file.ContentType, rc)
}

// HandleDeleteFile handles DELETE /api/files/:id.
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	if err := h.files.DeleteFile(c.Request().Context(), c.Param("id"), authedUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "file deleted successfully"})
}

// HandleCreateShareLink handles POST /api/files/:id/share.
func (h *Handler) HandleCreateShareLink(c echo.Context) error {
	var req createShareLinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	link, err := h.shares.CreateShareLink(
		c.Request().Context(),
		c.Param("id"),
		authedUserID(c),
		req.ExpirationDays,
	)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, link)
}

// HandleResolveShareLink handles GET /api/share/:linkId.
// Anonymous: returns the file metadata and the link record.
func (h *Handler) HandleResolveShareLink(c echo.Context) error {
	result, err := h.shares.ResolveShareLink(c.Request().Context(), c.Param("linkId"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleShareDownload handles GET /api/share/:linkId/download.
// Anonymous: dereferences the link and streams the file.
func (h *Handler) HandleShareDownload(c echo.Context) error {
	result, err := h.shares.ResolveShareLink(c.Request().Context(), c.Param("linkId"))
	if err != nil {
		return mapServiceError(c, err)
	}

	rc, err := h.files.OpenBlob(c.Request().Context(), result.File)
	if err != nil {
		return mapServiceError(c, err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", result.File.FileName))
	return c.Stream(http.StatusOK, result.File.ContentType, rc)
}

// HandleRevokeShareLink handles DELETE /api/share/:linkId.
func (h *Handler) HandleRevokeShareLink(c echo.Context) error {
	if err := h.shares.RevokeShareLink(c.Request().Context(), c.Param("linkId"), authedUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "share link revoked successfully"})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
		"service":  "CloudPix API",
	})
}

// HandleStats handles GET /api/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.files.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve stats",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_files":         stats.TotalFiles,
		"active_files":        stats.ActiveFiles,
		"total_share_links":   stats.TotalShareLinks,
		"total_link_accesses": stats.TotalLinkAccesses,
		"storage_used_bytes":  stats.StorageUsed,
		"storage_used_human":  humanizeBytes(stats.StorageUsed),
	})
}

// mapServiceError translates service-layer errors into HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrFileNotFound),
		errors.Is(err, service.ErrShareLinkNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrLinkGone):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrFileNotShareable),
		errors.Is(err, service.ErrInvalidExpiration),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrBlockedType),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidEmail):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
