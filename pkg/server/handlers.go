package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-go-golems/canvas-agent/pkg/events"
	"github.com/go-go-golems/canvas-agent/pkg/helpers"
	"github.com/go-go-golems/canvas-agent/pkg/inference/graph"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/state/serde"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleInvoke(c *gin.Context) {
	g, ok := s.lookupGraph(c)
	if !ok {
		return
	}
	st := readState(c)

	ctx, cancel := s.requestContext(c)
	defer cancel()

	final, err := g.Invoke(ctx, st)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("graph", g.ID()).Msg("invoke failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, final)
}

// handleStream runs the graph with a sink on a per-request topic and copies
// every event to the response as an SSE frame. Publishing blocks until the
// frame is written, so the stream is complete once the graph returns.
func (s *Server) handleStream(c *gin.Context) {
	g, ok := s.lookupGraph(c)
	if !ok {
		return
	}
	st := readState(c)

	ctx, cancel := s.requestContext(c)
	defer cancel()

	topic := "stream." + uuid.NewString()
	msgs, err := s.eventRouter.Subscribe(ctx, topic)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	done := make(chan error, 1)
	go func() {
		_, err := g.Stream(ctx, st, s.eventRouter.Sink(topic))
		done <- err
	}()

	writeOK := true
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			frame, eventType, err := events.SSEFrameFromMessage(msg)
			msg.Ack()
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("stream: dropping undecodable event")
				continue
			}
			if !writeOK {
				continue
			}
			if _, err := c.Writer.Write(frame); err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("event_type", string(eventType)).Msg("stream: client gone")
				writeOK = false
				cancel()
				continue
			}
			c.Writer.Flush()
			streamedEvents.WithLabelValues(g.ID(), string(eventType)).Inc()
		case err := <-done:
			if err != nil && writeOK {
				log.Ctx(ctx).Error().Err(err).Str("graph", g.ID()).Msg("stream failed")
				_, _ = c.Writer.Write(events.SSEErrorFrame(err))
				c.Writer.Flush()
			}
			return
		}
	}
}

func (s *Server) lookupGraph(c *gin.Context) (*graph.Graph, bool) {
	g, ok := s.graphs[c.Param("graph_id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown graph_id"})
		return nil, false
	}
	return g, true
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	if s.requestTimeout > 0 {
		return context.WithTimeout(ctx, s.requestTimeout)
	}
	return context.WithCancel(ctx)
}

// readState accepts {"input": {...}} or a bare state. Anything that does not
// decode becomes an empty state.
func readState(c *gin.Context) *state.State {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		return state.New()
	}
	st, err := serde.FromJSON(body)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("request body is not a state, using empty state")
		return state.New()
	}
	return st
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// correlationID puts the client's X-Request-ID (or a generated one) into the
// request context and a request scoped logger next to it.
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.GetHeader(helpers.CorrelationIDHeader)
		if id == "" {
			id = helpers.CorrelationIDFromContext(ctx)
		}
		ctx = helpers.ContextWithCorrelationID(ctx, id)
		lg := log.With().Str("request_id", id).Logger()
		ctx = lg.WithContext(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(helpers.CorrelationIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
