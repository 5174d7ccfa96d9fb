package handlers

import (
	"net/http"

	"hiresync/internal/models"
	"hiresync/internal/services"
	"hiresync/internal/services/dto"
	"hiresync/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type ProposalHandler struct {
	*BaseHandler
	proposalService services.ProposalService
}

func NewProposalHandler(base *BaseHandler, proposalService services.ProposalService) *ProposalHandler {
	return &ProposalHandler{
		BaseHandler:     base,
		proposalService: proposalService,
	}
}

func (h *ProposalHandler) RegisterRoutes(r *gin.RouterGroup) {
	proposals := r.Group("/proposals")
	{
		proposals.GET("/my", h.GetMyProposals)
		proposals.GET("/:proposalId", h.GetProposal)
		proposals.PUT("/:proposalId/status", h.UpdateStatus)
	}
}

func (h *ProposalHandler) GetMyProposals(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	proposals, err := h.proposalService.GetMyProposals(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposalResponses(proposals)})
}

func (h *ProposalHandler) GetProposal(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	proposal, err := h.proposalService.GetProposal(c.Request.Context(), userID, c.Param("proposalId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProposalResponse(proposal))
}

// UpdateStatus - рассмотрение отклика владельцем вакансии. Если статус
// сохранен, а уведомление или чат не создались, ответ 200 с warning.
func (h *ProposalHandler) UpdateStatus(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.TransitionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.proposalService.Review(c.Request.Context(), userID, c.Param("proposalId"), models.ProposalStatus(req.Status))
	if result == nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, &dto.TransitionResponse{
		Proposal:      dto.NewProposalResponse(result.Proposal),
		ThreadID:      result.ThreadID,
		ThreadCreated: result.ThreadCreated,
		Warning:       warning(err),
	})
}

func proposalResponses(proposals []models.Proposal) []*dto.ProposalResponse {
	out := make([]*dto.ProposalResponse, 0, len(proposals))
	for i := range proposals {
		out = append(out, dto.NewProposalResponse(&proposals[i]))
	}
	return out
}

// warning описывает ошибку побочного шага, не отменившую основной результат.
func warning(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
