package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/hub"
)

const defaultRadiusKm = 10.0

type reportService interface {
	Report(ctx context.Context, cand *domain.ReportCandidate) (*domain.TrafficEvent, error)
}

type queryService interface {
	EventsNear(ctx context.Context, q domain.RadiusQuery) ([]*domain.TrafficEvent, error)
	ListActive(ctx context.Context) []*domain.TrafficEvent
	Subscribe(filter *domain.Filter) (*hub.Subscription, []*domain.TrafficEvent)
}

type EventHandler struct {
	reportSvc reportService
	querySvc  queryService
}

func NewEventHandler(reportSvc reportService, querySvc queryService) *EventHandler {
	return &EventHandler{reportSvc: reportSvc, querySvc: querySvc}
}

func (h *EventHandler) Register(r *gin.RouterGroup) {
	r.POST("/report", h.HandleReport)
	r.GET("/events", h.HandleEvents)
	r.GET("/events/live", h.HandleLive)
}

func (h *EventHandler) HandleReport(c *gin.Context) {
	var cand domain.ReportCandidate
	if err := c.ShouldBindJSON(&cand); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// the verified bearer identity is authoritative; a userId in the body is
	// advisory in the same way a client timestamp is
	cand.UserID = CallerIdentity(c)

	ev, err := h.reportSvc.Report(c.Request.Context(), &cand)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ev)
}

func (h *EventHandler) HandleEvents(c *gin.Context) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")

	// no center given: the bounded recency feed
	if latStr == "" && lonStr == "" {
		c.JSON(http.StatusOK, h.querySvc.ListActive(c.Request.Context()))
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat parameter"})
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lon parameter"})
		return
	}

	radius := defaultRadiusKm
	if radiusStr := c.Query("radius"); radiusStr != "" {
		radius, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius parameter"})
			return
		}
	}

	events, err := h.querySvc.EventsNear(c.Request.Context(), domain.RadiusQuery{
		Latitude:  lat,
		Longitude: lon,
		RadiusKm:  radius,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// HandleLive streams the live feed over SSE: one "snapshot" event with the
// current matching set, then incremental "insert" and "expire" events. The
// connection holds no store or index lock while idle.
func (h *EventHandler) HandleLive(c *gin.Context) {
	filter, err := liveFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, snapshot := h.querySvc.Subscribe(filter)
	defer sub.Cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("snapshot", snapshot)
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case u, ok := <-sub.Updates():
			if !ok {
				return
			}
			switch u.Kind {
			case hub.UpdateInsert:
				c.SSEvent("insert", u.Event)
			case hub.UpdateExpire:
				c.SSEvent("expire", gin.H{"id": u.ID})
			}
			c.Writer.Flush()
		}
	}
}

// liveFilter builds the optional radius filter from query params. Absent
// params subscribe to everything.
func liveFilter(c *gin.Context) (*domain.Filter, error) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errors.New("invalid lat parameter")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, errors.New("invalid lon parameter")
	}
	if !domain.ValidCoordinate(lat, lon) {
		return nil, errors.New("lat/lon out of range")
	}

	radius := defaultRadiusKm
	if radiusStr := c.Query("radius"); radiusStr != "" {
		radius, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius < 0 {
			return nil, errors.New("invalid radius parameter")
		}
	}

	return &domain.Filter{Latitude: lat, Longitude: lon, RadiusKm: radius}, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case domain.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
