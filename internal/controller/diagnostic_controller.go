package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DiagnosticController struct {
	Service *service.DiagnosticService
}

func NewDiagnosticController(svc *service.DiagnosticService) *DiagnosticController {
	return &DiagnosticController{Service: svc}
}

// @Summary 提交诊断测评
// @Tags 诊断
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "诊断测评ID"
// @Param body body service.SubmitRequest true "答案"
// @Success 200 {object} util.Response
// @Router /api/diagnostics/{id}/submit [post]
func (c *DiagnosticController) Submit(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	out, err := c.Service.Submit(ctx.Request.Context(), user.UserID, id, req.Answers)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, out)
}

// @Summary 获取我的诊断结果
// @Tags 诊断
// @Router /api/diagnostics/{id}/result [get]
func (c *DiagnosticController) GetResult(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	res, err := c.Service.Result(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
