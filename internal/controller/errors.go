package controller

import (
	"errors"
	"lms_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleServiceError 将业务错误映射为 HTTP 状态码
func handleServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrAttemptsExhausted):
		util.Error(ctx, http.StatusForbidden, "no attempts remaining")
	case errors.Is(err, util.ErrInvalidArgument),
		errors.Is(err, util.ErrAssessmentKindMismatch),
		errors.Is(err, util.ErrAssessmentPublished),
		errors.Is(err, util.ErrInvalidReviewAction):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// paramID 解析路径中的数字 ID，失败时已写回 400
func paramID(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}

func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}
