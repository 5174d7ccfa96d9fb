package handlers

import (
	"net/http"

	"hiresync/internal/services"
	"hiresync/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	*BaseHandler
	jobService      *services.JobService
	proposalService services.ProposalService
}

func NewJobHandler(base *BaseHandler, jobService *services.JobService, proposalService services.ProposalService) *JobHandler {
	return &JobHandler{
		BaseHandler:     base,
		jobService:      jobService,
		proposalService: proposalService,
	}
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	jobs := r.Group("/jobs")
	{
		jobs.POST("", h.CreateJob)
		jobs.GET("/my", h.GetMyJobs)
		jobs.GET("/:jobId", h.GetJob)

		// отклики на вакансию
		jobs.POST("/:jobId/proposals", h.SubmitProposal)
		jobs.GET("/:jobId/proposals", h.GetJobProposals)
	}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateJobRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	req.OwnerID = userID

	job, err := h.jobService.CreateJob(c.Request.Context(), req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewJobResponse(job))
}

func (h *JobHandler) GetJob(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewJobResponse(job))
}

func (h *JobHandler) GetMyJobs(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	jobs, err := h.jobService.GetMyJobs(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	out := make([]*dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, dto.NewJobResponse(&jobs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

func (h *JobHandler) SubmitProposal(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitProposalRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.JobID = c.Param("jobId")
	req.ApplicantID = userID

	proposal, err := h.proposalService.Submit(c.Request.Context(), req)
	if err != nil && proposal == nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"proposal": dto.NewProposalResponse(proposal),
		"warning":  warning(err),
	})
}

func (h *JobHandler) GetJobProposals(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	proposals, err := h.proposalService.GetJobProposals(c.Request.Context(), userID, c.Param("jobId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposalResponses(proposals)})
}
