package verification

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"licensure-verifier/pkg/errutil"
)

type RunRequest struct {
	Providers []string `json:"providers" binding:"required"`
}

type RunResponse struct {
	OK      bool        `json:"ok"`
	Summary *RunSummary `json:"summary"`
}

type ListLicensesResponse struct {
	Items []LicenseResponse `json:"items"`
}

// HandleRun triggers one verification run over the requested providers.
func (s *Service) HandleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	summary, err := s.Run(c.Request.Context(), req.Providers)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, RunResponse{OK: true, Summary: summary})
}

// HandleListLicenses returns the stored rows, optionally filtered by the
// provider and state query parameters.
func (s *Service) HandleListLicenses(c *gin.Context) {
	rows, err := s.List(c.Request.Context(), ListFilter{
		Provider: c.Query("provider"),
		State:    c.Query("state"),
	})
	if err != nil {
		c.Error(err)
		return
	}

	items := make([]LicenseResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.ToResponse())
	}

	c.JSON(http.StatusOK, ListLicensesResponse{Items: items})
}
