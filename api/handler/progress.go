package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/termharvest/models"
)

// RunState exposes a running harvest.
type RunState interface {
	Progress() models.Progress
	Records() []models.Record
}

// Progress returns a handler for GET /api/v1/progress.
func Progress(run RunState) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: run.Progress()})
	}
}

// RecordsPage is the payload of GET /api/v1/records.
type RecordsPage struct {
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
	Records []models.Record `json:"records"`
}

// Records returns a handler for GET /api/v1/records.
//
// Query parameters:
//
//	offset  first record to return (default 0)
//	limit   maximum number of records (default all)
func Records(run RunState) gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, err := nonNegativeQuery(c, "offset")
		if err != nil {
			badRequest(c, "offset must be a non-negative integer")
			return
		}
		limit, err := nonNegativeQuery(c, "limit")
		if err != nil {
			badRequest(c, "limit must be a non-negative integer")
			return
		}

		all := run.Records()
		page := RecordsPage{Total: len(all), Offset: offset, Records: []models.Record{}}
		if offset < len(all) {
			end := len(all)
			if limit > 0 && limit < end-offset {
				end = offset + limit
			}
			page.Records = all[offset:end]
		}

		c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: page})
	}
}

func nonNegativeQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Error: &models.ErrorDetail{Code: models.ErrCodeInvalidRequest, Message: msg},
	})
}
