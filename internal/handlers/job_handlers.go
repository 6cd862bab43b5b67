package handlers

import (
	"errors"
	"net/http"
	"strings"

	"warehousepos/internal/common"
	"warehousepos/internal/jobs/background"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"

	"github.com/labstack/echo/v4"
)

// JobRunner is the scheduler as seen by the admin API.
type JobRunner interface {
	Status() []background.JobStatus
	RunNow(name string) error
}

// JobHandlers lets platform operators inspect and trigger background jobs
type JobHandlers struct {
	jobs JobRunner
}

func NewJobHandlers(jobs JobRunner) *JobHandlers {
	return &JobHandlers{jobs: jobs}
}

func (h *JobHandlers) RegisterAdmin(g *echo.Group, rbac *middleware.RBACMiddleware) {
	g.GET("/jobs", h.ListJobs, rbac.RequirePermission(models.PermPlatformRead))
	g.POST("/jobs/:name/run", h.RunJob, rbac.RequirePermission(models.PermTenantsApprove))
}

// ListJobs handles GET /admin/jobs
func (h *JobHandlers) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, list(h.jobs.Status(), 0, 0))
}

// RunJob handles POST /admin/jobs/:name/run. The job runs asynchronously.
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if err := h.jobs.RunNow(name); err != nil {
		if errors.Is(err, background.ErrUnknownJob) {
			return common.SendError(c, apperr.Newf(apperr.CodeNotFound, "job %q not found", name))
		}
		return common.SendError(c, apperr.Wrap(apperr.CodeInternal, err, "failed to trigger job"))
	}
	return c.JSON(http.StatusAccepted, map[string]string{"job": name, "status": "triggered"})
}
