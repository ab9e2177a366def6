// Package server exposes the booking operations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-bookings/pkg/core/model"
	"github.com/jakechorley/volunteer-bookings/pkg/core/services"
)

// UserHeader carries the id of the acting user, set by the authentication proxy
const UserHeader = "X-User-ID"

const apiPrefix = "/api/v1"

// Bookings is the set of operations the HTTP layer serves
type Bookings interface {
	CreateBooking(ctx context.Context, actor string, input services.CreateBookingInput) (*services.BookingView, error)
	UpdateBooking(ctx context.Context, actor string, id int64, patch services.UpdateBookingInput) (*services.BookingView, error)
	CancelBooking(ctx context.Context, actor string, id int64, input services.CancelBookingInput) (*model.Booking, error)
	DeleteBooking(ctx context.Context, actor string, id int64) (*model.Booking, error)
	ReplicateBooking(ctx context.Context, actor string, id int64, input services.ReplicateBookingInput) (*services.BookingView, error)
	ResumeExpansion(ctx context.Context, actor string, id int64) (*services.ExpansionResult, error)
	GetBooking(ctx context.Context, id int64) (*services.BookingView, error)
	ListBookings(ctx context.Context, input services.ListBookingsInput) (*services.BookingPage, error)
	GetBookingHistory(ctx context.Context, id int64) ([]model.HistoryEntry, error)
}

// Response is the envelope of every reply
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server routes HTTP requests to the booking service
type Server struct {
	bookings Bookings
	logger   *zap.Logger
}

// New creates a server
func New(bookings Bookings, logger *zap.Logger) *Server {
	return &Server{bookings: bookings, logger: logger}
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	api := router.Group(apiPrefix)
	api.
		POST("/bookings", s.createBooking).
		GET("/bookings", s.listBookings).
		GET("/bookings/:id", s.getBooking).
		PATCH("/bookings/:id", s.updateBooking).
		DELETE("/bookings/:id", s.deleteBooking).
		POST("/bookings/:id/cancel", s.cancelBooking).
		POST("/bookings/:id/replicate", s.replicateBooking).
		POST("/bookings/:id/expand", s.resumeExpansion).
		GET("/bookings/:id/history", s.getBookingHistory)

	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) createBooking(c *gin.Context) {
	var input services.CreateBookingInput
	if !bindJSON(c, &input) {
		return
	}
	view, err := s.bookings.CreateBooking(c.Request.Context(), actor(c), input)
	respond(c, http.StatusCreated, view, err)
}

func (s *Server) listBookings(c *gin.Context) {
	input := services.ListBookingsInput{
		Status:      c.Query("status"),
		BookingType: c.Query("booking_type"),
		DateFrom:    c.Query("date_from"),
		DateTo:      c.Query("date_to"),
	}
	for name, dst := range map[string]*int{"page": &input.Page, "page_size": &input.PageSize} {
		if raw := c.Query(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				fail(c, &services.ValidationError{Field: name, Message: "must be an integer"})
				return
			}
			*dst = n
		}
	}
	if raw := c.Query("parent_booking_id"); raw != "" {
		id, err := services.ParseBookingID(raw)
		if err != nil {
			fail(c, err)
			return
		}
		input.ParentBookingID = id
	}

	page, err := s.bookings.ListBookings(c.Request.Context(), input)
	respond(c, http.StatusOK, page, err)
}

func (s *Server) getBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	view, err := s.bookings.GetBooking(c.Request.Context(), id)
	respond(c, http.StatusOK, view, err)
}

func (s *Server) updateBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var patch services.UpdateBookingInput
	if !bindJSON(c, &patch) {
		return
	}
	view, err := s.bookings.UpdateBooking(c.Request.Context(), actor(c), id, patch)
	respond(c, http.StatusOK, view, err)
}

func (s *Server) deleteBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := s.bookings.DeleteBooking(c.Request.Context(), actor(c), id)
	respond(c, http.StatusOK, b, err)
}

func (s *Server) cancelBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var input services.CancelBookingInput
	if !bindJSON(c, &input) {
		return
	}
	b, err := s.bookings.CancelBooking(c.Request.Context(), actor(c), id, input)
	respond(c, http.StatusOK, b, err)
}

func (s *Server) replicateBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var input services.ReplicateBookingInput
	if !bindJSON(c, &input) {
		return
	}
	view, err := s.bookings.ReplicateBooking(c.Request.Context(), actor(c), id, input)
	respond(c, http.StatusCreated, view, err)
}

func (s *Server) resumeExpansion(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	result, err := s.bookings.ResumeExpansion(c.Request.Context(), actor(c), id)
	respond(c, http.StatusOK, result, err)
}

func (s *Server) getBookingHistory(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	entries, err := s.bookings.GetBookingHistory(c.Request.Context(), id)
	respond(c, http.StatusOK, entries, err)
}

func actor(c *gin.Context) string {
	return c.GetHeader(UserHeader)
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := services.ParseBookingID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, &services.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

// respond writes data on success. A failed expansion still returns the partial data
// so the caller can see how many occurrences were committed.
func respond(c *gin.Context, status int, data any, err error) {
	if err != nil {
		c.JSON(services.StatusCode(err), Response{Success: false, Error: err.Error(), Data: partial(data, err)})
		return
	}
	c.JSON(status, Response{Success: true, Data: data})
}

func partial(data any, err error) any {
	var expansionErr *services.ExpansionError
	if errors.As(err, &expansionErr) {
		return data
	}
	return nil
}

func fail(c *gin.Context, err error) {
	respond(c, 0, nil, err)
}
