package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/domain/alpr"
	"github.com/AshrafMahmoudS/ALPR-Barrier-Control-System/internal/service"
)

// CameraMonitor exposes camera health to the API.
type CameraMonitor interface {
	HealthReport() map[string]alpr.CameraHealth
	AllAlive() bool
}

// BarrierControl exposes barrier status and the reset operation. Manual
// open/close go through the command channel instead, so they follow the
// same path as detections.
type BarrierControl interface {
	AllStats() map[string]alpr.BarrierStats
	Reset(key string) error
}

// CommandSender issues barrier commands onto the command topic.
type CommandSender interface {
	SendCommand(barrierID, action string) error
}

type Handler struct {
	detections *service.DetectionService
	cameras    CameraMonitor
	barriers   BarrierControl
	commands   CommandSender
	log        zerolog.Logger
}

func NewHandler(
	detections *service.DetectionService,
	cameras CameraMonitor,
	barriers BarrierControl,
	commands CommandSender,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		detections: detections,
		cameras:    cameras,
		barriers:   barriers,
		commands:   commands,
		log:        log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/health", h.health)
		public.GET("/cameras", h.listCameras)
		public.GET("/barriers", h.listBarriers)
		public.GET("/events", h.listEvents)
		public.GET("/events/stats/today", h.todayStats)
		public.GET("/sessions/active", h.activeSessions)
		public.GET("/sessions/history", h.sessionHistory)
	}

	// Manual barrier control requires a valid operator token
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/barriers/:key/open", h.openBarrier)
		protected.POST("/barriers/:key/close", h.closeBarrier)
		protected.POST("/barriers/:key/reset", h.resetBarrier)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"all_alive": h.cameras.AllAlive(),
		"cameras":   h.cameras.HealthReport(),
	})
}

func (h *Handler) listCameras(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.cameras.HealthReport()))
}

func (h *Handler) listBarriers(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.barriers.AllStats()))
}

func (h *Handler) openBarrier(c *gin.Context) {
	key := c.Param("key")
	if err := h.commands.SendCommand(key, "open"); err != nil {
		h.log.Error().Err(err).Str("barrier", key).Msg("manual open failed")
		c.JSON(http.StatusInternalServerError, errorResponse("failed to send command"))
		return
	}
	h.log.Info().Str("barrier", key).Msg("manual open requested")
	c.JSON(http.StatusAccepted, gin.H{"status": "ok", "barrier": key, "action": "open"})
}

func (h *Handler) closeBarrier(c *gin.Context) {
	key := c.Param("key")
	if err := h.commands.SendCommand(key, "close"); err != nil {
		h.log.Error().Err(err).Str("barrier", key).Msg("manual close failed")
		c.JSON(http.StatusInternalServerError, errorResponse("failed to send command"))
		return
	}
	h.log.Info().Str("barrier", key).Msg("manual close requested")
	c.JSON(http.StatusAccepted, gin.H{"status": "ok", "barrier": key, "action": "close"})
}

func (h *Handler) resetBarrier(c *gin.Context) {
	key := c.Param("key")
	if err := h.barriers.Reset(key); err != nil {
		switch {
		case errors.Is(err, alpr.ErrBarrierNotFound):
			c.JSON(http.StatusNotFound, errorResponse(err.Error()))
		case errors.Is(err, alpr.ErrInvalidInput):
			c.JSON(http.StatusConflict, errorResponse(err.Error()))
		default:
			h.log.Error().Err(err).Str("barrier", key).Msg("reset failed")
			c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		}
		return
	}
	h.log.Info().Str("barrier", key).Msg("barrier reset")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "barrier": key})
}

func (h *Handler) listEvents(c *gin.Context) {
	var plateQuery *string
	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		plateQuery = &plate
	}

	var from, to *string
	if f := strings.TrimSpace(c.Query("from")); f != "" {
		from = &f
	}
	if t := strings.TrimSpace(c.Query("to")); t != "" {
		to = &t
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	events, err := h.detections.FindEvents(c.Request.Context(), plateQuery, from, to, limit, offset)
	if err != nil {
		if errors.Is(err, alpr.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		h.log.Error().Err(err).Msg("failed to find events")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) todayStats(c *gin.Context) {
	stats, err := h.detections.StatsToday(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load today stats")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) activeSessions(c *gin.Context) {
	sessions, err := h.detections.ActiveSessions(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list active sessions")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	c.JSON(http.StatusOK, successResponse(sessions))
}

func (h *Handler) sessionHistory(c *gin.Context) {
	var vehicleID *string
	if v := strings.TrimSpace(c.Query("vehicle_id")); v != "" {
		vehicleID = &v
	}

	var from, to *time.Time
	if f := strings.TrimSpace(c.Query("from")); f != "" {
		t, err := time.Parse(time.RFC3339, f)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid from time format"))
			return
		}
		from = &t
	}
	if tq := strings.TrimSpace(c.Query("to")); tq != "" {
		t, err := time.Parse(time.RFC3339, tq)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid to time format"))
			return
		}
		to = &t
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	sessions, err := h.detections.SessionHistory(c.Request.Context(), vehicleID, from, to, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list session history")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	c.JSON(http.StatusOK, successResponse(sessions))
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
