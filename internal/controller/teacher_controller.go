package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// TeacherController 教师端：课程结构与测评编辑、提交评阅
type TeacherController struct {
	Courses     *service.CourseService
	Assessments *service.AssessmentService
	Submissions *service.SubmissionService
}

func NewTeacherController(courses *service.CourseService, assessments *service.AssessmentService, submissions *service.SubmissionService) *TeacherController {
	return &TeacherController{Courses: courses, Assessments: assessments, Submissions: submissions}
}

// @Summary 创建课程
// @Tags 教师端
// @Router /api/teacher/courses [post]
func (c *TeacherController) CreateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Courses.CreateCourse(ctx.Request.Context(), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary 课程详情（含模块与课时）
// @Tags 教师端
// @Router /api/teacher/courses/{id} [get]
func (c *TeacherController) GetCourse(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	course, err := c.Courses.GetCourse(ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 创建模块
// @Tags 教师端
// @Router /api/teacher/courses/{id}/modules [post]
func (c *TeacherController) CreateModule(ctx *gin.Context) {
	courseID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	m, err := c.Courses.CreateModule(ctx.Request.Context(), courseID, req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, m)
}

// @Summary 创建课时
// @Tags 教师端
// @Router /api/teacher/modules/{id}/lessons [post]
func (c *TeacherController) CreateLesson(ctx *gin.Context) {
	moduleID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	l, err := c.Courses.CreateLesson(ctx.Request.Context(), moduleID, req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, l)
}

// @Summary 删除模块
// @Tags 教师端
// @Router /api/teacher/modules/{id} [delete]
func (c *TeacherController) DeleteModule(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Courses.DeleteModule(ctx.Request.Context(), id); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 删除课时
// @Tags 教师端
// @Router /api/teacher/lessons/{id} [delete]
func (c *TeacherController) DeleteLesson(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Courses.DeleteLesson(ctx.Request.Context(), id); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 创建测评
// @Tags 教师端
// @Router /api/teacher/assessments [post]
func (c *TeacherController) CreateAssessment(ctx *gin.Context) {
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Assessments.CreateAssessment(ctx.Request.Context(), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary 测评列表
// @Tags 教师端
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Router /api/teacher/assessments [get]
func (c *TeacherController) ListAssessments(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	list, total, err := c.Assessments.ListAssessments(ctx.Request.Context(), page, limit)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

// @Summary 测评详情（含答案）
// @Tags 教师端
// @Router /api/teacher/assessments/{id} [get]
func (c *TeacherController) GetAssessment(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Assessments.GetAssessment(ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 发布测评，发布后题目不可修改
// @Tags 教师端
// @Router /api/teacher/assessments/{id}/publish [post]
func (c *TeacherController) PublishAssessment(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Assessments.Publish(ctx.Request.Context(), id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 添加题目
// @Tags 教师端
// @Router /api/teacher/assessments/{id}/questions [post]
func (c *TeacherController) AddQuestion(ctx *gin.Context) {
	assessmentID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req service.AssessmentQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Assessments.AddQuestion(ctx.Request.Context(), assessmentID, req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 更新题目
// @Tags 教师端
// @Router /api/teacher/questions/{id} [put]
func (c *TeacherController) UpdateQuestion(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req service.AssessmentQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Assessments.UpdateQuestion(ctx.Request.Context(), id, req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除题目
// @Tags 教师端
// @Router /api/teacher/questions/{id} [delete]
func (c *TeacherController) DeleteQuestion(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Assessments.DeleteQuestion(ctx.Request.Context(), id); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 查看任意提交
// @Tags 教师端
// @Router /api/teacher/submissions/{id} [get]
func (c *TeacherController) GetSubmission(ctx *gin.Context) {
	sub, err := c.Submissions.GetSubmission(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 评阅提交：approve / retry / reinforce
// @Tags 教师端
// @Router /api/teacher/submissions/{id}/review [post]
func (c *TeacherController) ReviewSubmission(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Submissions.Review(ctx.Request.Context(), user.UserID, ctx.Param("id"), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
