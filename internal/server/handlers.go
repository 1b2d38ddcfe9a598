package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/omniverse/omnimarket/internal/connector"
	"github.com/omniverse/omnimarket/internal/envelope"
	"github.com/omniverse/omnimarket/internal/schema"
	"github.com/omniverse/omnimarket/pkg/hashset"
)

const (
	defaultListLimit   = 50
	maxListLimit       = 500
	defaultBookDepth   = 10
	defaultEventsLimit = 100
)

var (
	validStatuses  = hashset.New("active", "closed", "settled")
	validIntervals = hashset.New("1m", "5m", "1h", "1d")
)

// meta is the base response metadata. The server clock stamps every
// response; payload determinism in mock mode is a connector property.
func meta(extra map[string]any) map[string]any {
	m := map[string]any{"ts": time.Now().UTC().Format(time.RFC3339)}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func (s *Server) fail(c *gin.Context, err error) {
	status, env := envelope.FromError(err, meta(nil))
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, env)
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, envelope.Failure(envelope.CodeBadRequest, msg, meta(nil)))
}

func (s *Server) handleHealth(c *gin.Context) {
	modes := map[string]string{}
	for _, conn := range s.registry.All() {
		modes[string(conn.Provider())] = string(conn.Mode())
	}
	c.JSON(http.StatusOK, envelope.Success(gin.H{"status": "ok", "providers": modes}, meta(nil)))
}

func (s *Server) handleListMarkets(c *gin.Context) {
	q := connector.ListQuery{Search: c.Query("q")}

	if raw := c.Query("status"); raw != "" {
		if !validStatuses.Has(raw) {
			s.badRequest(c, fmt.Sprintf("unknown status %q", raw))
			return
		}
		q.Status = schema.MarketStatus(raw)
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			s.badRequest(c, fmt.Sprintf("limit must be an integer in [1, %d]", maxListLimit))
			return
		}
		limit = n
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.badRequest(c, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	conns := s.registry.All()
	if name := c.Query("provider"); name != "" {
		conn, err := s.registry.Resolve(name)
		if err != nil {
			s.fail(c, err)
			return
		}
		conns = []connector.Connector{conn}
	}

	merged := make([]*schema.MarketMeta, 0)
	providers := make([]string, 0, len(conns))
	for _, conn := range conns {
		providers = append(providers, string(conn.Provider()))
		markets, err := conn.ListMarkets(c.Request.Context(), q)
		if err != nil {
			s.fail(c, err)
			return
		}
		merged = append(merged, markets...)
	}

	total := len(merged)
	page := connector.ListQuery{Limit: limit, Offset: offset}.Page(merged)

	c.JSON(http.StatusOK, envelope.Success(page, meta(map[string]any{
		"total":     total,
		"limit":     limit,
		"offset":    offset,
		"providers": providers,
	})))
}

func (s *Server) handleGetMarket(c *gin.Context) {
	id := c.Param("id")
	conn, err := s.registry.ResolveMarket(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	market, err := conn.GetMarket(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope.Success(market, meta(map[string]any{
		"provider": string(conn.Provider()),
		"mode":     string(conn.Mode()),
	})))
}

func (s *Server) handleGetPrice(c *gin.Context) {
	id := c.Param("id")
	conn, err := s.registry.ResolveMarket(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	quote, err := conn.GetPrice(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope.Success(quote, meta(nil)))
}

func (s *Server) handleGetTimeseries(c *gin.Context) {
	id := c.Param("id")
	conn, err := s.registry.ResolveMarket(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	var sq connector.SeriesQuery
	if raw := c.Query("interval"); raw != "" {
		if !validIntervals.Has(raw) {
			s.badRequest(c, fmt.Sprintf("unknown interval %q", raw))
			return
		}
		sq.Interval = schema.Interval(raw)
	}
	if raw := c.Query("start"); raw != "" {
		t, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			s.badRequest(c, "start must be an RFC3339 timestamp")
			return
		}
		sq.Start = t
	}
	if raw := c.Query("end"); raw != "" {
		t, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			s.badRequest(c, "end must be an RFC3339 timestamp")
			return
		}
		sq.End = t
	}

	series, err := conn.GetTimeseries(c.Request.Context(), id, sq)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope.Success(series, meta(map[string]any{
		"interval": string(series.Interval),
		"points":   len(series.Points),
	})))
}

func (s *Server) handleGetOrderbook(c *gin.Context) {
	id := c.Param("id")
	conn, err := s.registry.ResolveMarket(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	depth := defaultBookDepth
	if raw := c.Query("depth"); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 0 {
			s.badRequest(c, "depth must be a non-negative integer, 0 means full book")
			return
		}
		depth = n
	}

	book, err := conn.GetOrderbook(c.Request.Context(), id, depth)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope.Success(book, meta(map[string]any{"depth": depth})))
}

func (s *Server) handleGetEvents(c *gin.Context) {
	id := c.Param("id")
	conn, err := s.registry.ResolveMarket(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	q := connector.EventsQuery{Limit: defaultEventsLimit}
	if raw := c.Query("since"); raw != "" {
		t, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			s.badRequest(c, "since must be an RFC3339 timestamp")
			return
		}
		q.Since = t
	}
	if raw := c.Query("limit"); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 1 {
			s.badRequest(c, "limit must be a positive integer")
			return
		}
		q.Limit = n
	}

	events, err := conn.GetEvents(c.Request.Context(), id, q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope.Success(events, meta(map[string]any{"count": len(events)})))
}

func (s *Server) handleSync(c *gin.Context) {
	conn, err := s.registry.Resolve(c.Param("provider"))
	if err != nil {
		s.fail(c, err)
		return
	}

	report, err := conn.Sync(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope.Success(report, meta(nil)))
}
