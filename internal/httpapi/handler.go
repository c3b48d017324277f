package httpapi

import (
	"net/http"

	"teamfit-platform/pkg/db/pagination"
	"teamfit-platform/pkg/errutil"
	"teamfit-platform/pkg/health"
	"teamfit-platform/pkg/middleware"
	"teamfit-platform/services/activity"
	"teamfit-platform/services/job"
	"teamfit-platform/services/organization"
	"teamfit-platform/services/quota"
	"teamfit-platform/services/trust"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	activities *activity.Service
	jobs       *job.Service
	orgs       *organization.Service
	quota      *quota.Service
	trust      *trust.Service
	health     health.HealthService
}

type HandlerParams struct {
	fx.In
	Activities *activity.Service
	Jobs       *job.Service
	Orgs       *organization.Service
	Quota      *quota.Service
	Trust      *trust.Service
	Health     health.HealthService
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		activities: p.Activities,
		jobs:       p.Jobs,
		orgs:       p.Orgs,
		quota:      p.Quota,
		trust:      p.Trust,
		health:     p.Health,
	}
}

// ProvideRouter builds the gin engine with all API routes registered.
func ProvideRouter(h *Handler) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Error())

	r.GET("/healthz", h.health.Liveness)
	r.GET("/readyz", h.health.Readiness)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/activities/customize", h.CustomizeActivity)
		v1.GET("/activities", h.ListActivities)
		v1.PATCH("/activities/:id/status", h.UpdateActivityStatus)

		v1.POST("/generation/jobs", h.CreateGenerationJob)
		v1.GET("/generation/jobs/:id", h.GetJobStatus)
		v1.GET("/generation/jobs", h.ListJobs)

		v1.GET("/organizations/:id/quota", h.GetQuotaStatus)
		v1.GET("/organizations/:id/trust", h.GetTrustStatus)

		v1.PUT("/teams/:id/profile", h.UpsertTeamProfile)

		v1.POST("/verification/email", h.ValidateEmail)
	}

	return r
}

func (h *Handler) CustomizeActivity(c *gin.Context) {
	var req activity.CustomizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, errutil.BadRequest(err.Error()))
		return
	}

	row, quotaStatus, err := h.activities.CustomizePublic(c.Request.Context(), req)
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"activity": row,
		"quota":    quotaStatus,
	})
}

func (h *Handler) ListActivities(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		h.abort(c, errutil.BadRequest("team_id is required"))
		return
	}

	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		h.abort(c, errutil.BadRequest(err.Error()))
		return
	}

	rows, pageInfo, err := h.activities.ListByTeam(c.Request.Context(), teamID, p)
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activities": rows,
		"page_info":  pageInfo,
	})
}

func (h *Handler) UpdateActivityStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.abort(c, errutil.BadRequest(err.Error()))
		return
	}

	row, err := h.activities.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *Handler) CreateGenerationJob(c *gin.Context) {
	var req job.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, errutil.BadRequest(err.Error()))
		return
	}

	j, err := h.jobs.CreateCustomGeneration(c.Request.Context(), req)
	if err != nil {
		h.abort(c, err)
		return
	}

	// 202: the batch is produced by the worker, poll the job for results.
	c.JSON(http.StatusAccepted, j)
}

func (h *Handler) GetJobStatus(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}

	resp := gin.H{
		"job":    status.Job,
		"status": status.State,
	}
	if len(status.Activities) > 0 {
		resp["activities"] = status.Activities
	}
	if status.Error != "" {
		resp["error_message"] = status.Error
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListJobs(c *gin.Context) {
	teamID := c.Query("team_id")
	if teamID == "" {
		h.abort(c, errutil.BadRequest("team_id is required"))
		return
	}

	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		h.abort(c, errutil.BadRequest(err.Error()))
		return
	}

	rows, pageInfo, err := h.jobs.ListByTeam(c.Request.Context(), teamID, p)
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":      rows,
		"page_info": pageInfo,
	})
}

func (h *Handler) GetQuotaStatus(c *gin.Context) {
	record, err := h.quota.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) GetTrustStatus(c *gin.Context) {
	orgID := c.Param("id")

	score, err := h.trust.UpdateTrustScore(c.Request.Context(), orgID)
	if err != nil {
		h.abort(c, err)
		return
	}

	required, vtype, err := h.trust.CheckVerificationRequired(c.Request.Context(), orgID)
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trust_score":           score,
		"requires_verification": required,
		"verification_type":     vtype,
	})
}

type teamProfileRequest struct {
	OrganizationID   string `json:"organization_id" binding:"required"`
	TeamRole         string `json:"team_role_description"`
	Responsibilities string `json:"member_responsibilities"`
	PastActivities   string `json:"past_activities_summary"`
	IndustrySector   string `json:"industry_sector"`
	TeamSize         int    `json:"team_size"`
}

func (h *Handler) UpsertTeamProfile(c *gin.Context) {
	var req teamProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, errutil.BadRequest(err.Error()))
		return
	}

	profile := organization.TeamProfile{
		OrganizationID:   req.OrganizationID,
		TeamID:           c.Param("id"),
		TeamRole:         req.TeamRole,
		Responsibilities: req.Responsibilities,
		PastActivities:   req.PastActivities,
		IndustrySector:   req.IndustrySector,
		TeamSize:         req.TeamSize,
	}

	saved, err := h.orgs.UpsertTeamProfile(c.Request.Context(), &profile)
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

func (h *Handler) ValidateEmail(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.abort(c, errutil.BadRequest(err.Error()))
		return
	}

	result, err := h.trust.ValidateEmail(c.Request.Context(), body.Email)
	if err != nil {
		h.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
