package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Service *service.ProgressService
}

func NewProgressController(svc *service.ProgressService) *ProgressController {
	return &ProgressController{Service: svc}
}

// @Summary 标记课时完成
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	res, err := c.Service.MarkLessonComplete(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

type timeOnTaskRequest struct {
	Seconds int `json:"seconds" binding:"required,min=1"`
}

// @Summary 记录课时学习时长
// @Tags 学习进度
// @Router /api/lessons/{id}/time [post]
func (c *ProgressController) RecordTime(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var req timeOnTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lp, err := c.Service.RecordTimeOnTask(ctx.Request.Context(), user.UserID, id, req.Seconds)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, lp)
}

// @Summary 报名课程
// @Tags 学习进度
// @Router /api/courses/{id}/enroll [post]
func (c *ProgressController) Enroll(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	e, err := c.Service.Enroll(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, e)
}

// @Summary 我的课程进度
// @Tags 学习进度
// @Router /api/courses/{id}/enrollment [get]
func (c *ProgressController) GetEnrollment(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	e, err := c.Service.GetEnrollment(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, e)
}
