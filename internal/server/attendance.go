package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	attendancedomain "github.com/digiget/digiget/internal/attendance/domain"
)

// employeeIdentity keys the clock-in rate limiter per staff member.
func employeeIdentity(c *gin.Context) string {
	var probe struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := c.ShouldBindBodyWith(&probe, bodyBinding); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.EmployeeID)
}

func (s *Server) ClockIn(c *gin.Context) {
	var req attendancedomain.ClockInRequest
	if err := c.ShouldBindBodyWith(&req, bodyBinding); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.attendanceSvc.ClockIn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) ClockOut(c *gin.Context) {
	var req attendancedomain.ClockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entry, err := s.attendanceSvc.ClockOut(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) ListShifts(c *gin.Context) {
	employeeID, err := parseID(c.Query("employee_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	from, to, err := parseDateRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.attendanceSvc.ListEntries(c.Request.Context(), employeeID, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) ApproveShift(c *gin.Context) {
	entryID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.attendanceSvc.ApproveEntry(c.Request.Context(), entryID, currentUserID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (s *Server) RejectShift(c *gin.Context) {
	entryID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.attendanceSvc.RejectEntry(c.Request.Context(), entryID, currentUserID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// parseDateRange reads from/to query params as RFC3339 or YYYY-MM-DD,
// defaulting to the trailing 7 days.
func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -7)
	to := now

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := parseTimestamp(raw)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRequest
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := parseTimestamp(raw)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidRequest
		}
		to = parsed
	}
	return from, to, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
