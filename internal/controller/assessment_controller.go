package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AssessmentController 学员端测评接口
type AssessmentController struct {
	Assessments *service.AssessmentService
	Submissions *service.SubmissionService
}

func NewAssessmentController(assessments *service.AssessmentService, submissions *service.SubmissionService) *AssessmentController {
	return &AssessmentController{Assessments: assessments, Submissions: submissions}
}

// @Summary 学员端：获取测评题目（不含答案）
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id}/questions [get]
func (c *AssessmentController) GetQuestions(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.Assessments.LearnerView(ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 提交测评答案
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param body body service.SubmitRequest true "答案，key 为题目ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "尝试次数已用完"
// @Router /api/assessments/{id}/submit [post]
func (c *AssessmentController) Submit(ctx *gin.Context) {
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

	res, err := c.Submissions.Submit(ctx.Request.Context(), user.UserID, id, req.Answers)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 查询已用/剩余尝试次数
// @Tags 测评
// @Router /api/assessments/{id}/attempts [get]
func (c *AssessmentController) GetAttempts(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	status, err := c.Submissions.AttemptStatus(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// @Summary 我的提交记录
// @Tags 测评
// @Router /api/assessments/{id}/submissions [get]
func (c *AssessmentController) ListMySubmissions(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	subs, err := c.Submissions.ListMySubmissions(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}

// @Summary 提交详情
// @Tags 测评
// @Router /api/submissions/{id} [get]
func (c *AssessmentController) GetSubmission(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	sub, err := c.Submissions.GetOwnSubmission(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
