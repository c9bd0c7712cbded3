package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plate-registry/internal/domain/plate"
	"plate-registry/internal/http/middleware"
	"plate-registry/internal/model"
	"plate-registry/internal/service"
)

const (
	maxImageBytes = 10 << 20
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	plates *service.PlateService
	log    zerolog.Logger
}

func NewHandler(plates *service.PlateService, log zerolog.Logger) *Handler {
	return &Handler{
		plates: plates,
		log:    log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	public := r.Group("/api/v1")
	{
		public.POST("/detections", h.createDetection)
		public.GET("/detections", h.listDetections)
		public.GET("/vehicles/:plate", h.getVehicle)
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/vehicles", middleware.Require(model.Principal.CanRegisterVehicles), h.registerVehicle)
		protected.GET("/vehicles/export", middleware.Require(model.Principal.CanExport), h.exportVehicles)
	}
}

type detectionResponse struct {
	DetectionID  string               `json:"detection_id"`
	Outcome      plate.OutcomeKind    `json:"outcome"`
	Reason       plate.Status         `json:"reason,omitempty"`
	Plate        string               `json:"plate,omitempty"`
	Region       *plate.Region        `json:"region,omitempty"`
	Vehicle      *plate.VehicleRecord `json:"vehicle,omitempty"`
	SnapshotURL  string               `json:"snapshot_url,omitempty"`
	AnnotatedPNG []byte               `json:"annotated_png,omitempty"`
}

func (h *Handler) createDetection(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("image file is required"))
		return
	}
	if fileHeader.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse("image is too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("failed to open image"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("failed to read image"))
		return
	}

	h.log.Info().
		Str("filename", fileHeader.Filename).
		Int("bytes", len(data)).
		Str("remote_addr", c.ClientIP()).
		Msg("processing detection request")

	result, err := h.plates.ProcessImage(c.Request.Context(), data)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := detectionResponse{
		DetectionID:  result.DetectionID.String(),
		Outcome:      result.Outcome.Kind,
		Plate:        result.Outcome.PlateText,
		Region:       result.Outcome.Detection.Region,
		Vehicle:      result.Outcome.Record,
		SnapshotURL:  result.SnapshotURL,
		AnnotatedPNG: result.AnnotatedPNG,
	}
	if result.Outcome.Kind == plate.OutcomeDetectionFailed {
		resp.Reason = result.Outcome.Reason
	}

	c.JSON(http.StatusOK, successResponse(resp))
}

func (h *Handler) listDetections(c *gin.Context) {
	limit := 0
	if l := c.Query("limit"); l != "" {
		if parsed, err := parseInt(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := parseInt(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	entries, err := h.plates.ListDetections(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entries))
}

func (h *Handler) getVehicle(c *gin.Context) {
	record, err := h.plates.GetVehicle(c.Request.Context(), c.Param("plate"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

type registerVehicleRequest struct {
	Plate              string `json:"plate"`
	OwnerName          string `json:"owner_name"`
	TrafficViolations  string `json:"traffic_violations"`
	EmissionExpiryDate string `json:"emission_expiry_date"`
}

func (h *Handler) registerVehicle(c *gin.Context) {
	var req registerVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	record, err := h.plates.RegisterVehicle(c.Request.Context(), req.Plate, plate.VehicleForm{
		OwnerName:          req.OwnerName,
		TrafficViolations:  req.TrafficViolations,
		EmissionExpiryDate: req.EmissionExpiryDate,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(c)
	h.log.Info().
		Str("plate", record.NumberPlate).
		Str("user_id", principal.UserID.String()).
		Msg("vehicle registered")

	c.JSON(http.StatusCreated, successResponse(record))
}

func (h *Handler) exportVehicles(c *gin.Context) {
	data, err := h.plates.ExportVehicles(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="vehicles.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, data)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrDuplicateKey):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": strings.TrimSpace(message),
	}
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
