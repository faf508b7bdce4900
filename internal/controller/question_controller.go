package controller

import (
	"edutheo_backend/internal/model"
	"edutheo_backend/internal/service"
	"edutheo_backend/internal/util"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// parseFilter reads the shared filter dimensions from the query string.
// List parameters are comma-separated: ?chapters=1,2&difficulty=Easy,Hard
func parseFilter(ctx *gin.Context) model.QuestionFilter {
	var filter model.QuestionFilter

	for _, raw := range splitParam(ctx.Query("chapters")) {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.ChapterNumbers = append(filter.ChapterNumbers, n)
		}
	}
	filter.DifficultyLevels = splitParam(ctx.Query("difficulty"))
	filter.QuestionTypes = splitParam(ctx.Query("types"))
	filter.Tags = splitParam(ctx.Query("tags"))

	filter.Limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	filter.Offset, _ = strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	return filter
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *QuestionController) Filter(ctx *gin.Context) {
	page, err := c.QuestionService.Filter(parseFilter(ctx))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

func (c *QuestionController) Random(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	excludeAttempted := ctx.DefaultQuery("exclude_attempted", "true") != "false"

	q, err := c.QuestionService.Random(user.UserID, parseFilter(ctx), excludeAttempted)
	if err != nil {
		if errors.Is(err, util.ErrNoQuestionsMatch) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

func (c *QuestionController) GetByID(ctx *gin.Context) {
	q, err := c.QuestionService.GetByQuestionID(ctx.Param("questionId"))
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

func (c *QuestionController) CheckAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var submission model.AnswerSubmission
	if err := ctx.ShouldBindJSON(&submission); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuestionService.CheckAnswer(user.UserID, submission)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrQuestionNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrInvalidAnswerKey):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

func (c *QuestionController) Create(ctx *gin.Context) {
	var q model.Question
	if err := ctx.ShouldBindJSON(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.QuestionService.Create(&q); err != nil {
		if errors.Is(err, util.ErrInvalidAnswerKey) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

func (c *QuestionController) Import(ctx *gin.Context) {
	var questions []model.Question
	if err := ctx.ShouldBindJSON(&questions); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	created, skipped, err := c.QuestionService.Import(questions)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"created": created, "skipped": skipped})
}

func (c *QuestionController) Chapters(ctx *gin.Context) {
	chapters, err := c.QuestionService.Chapters()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, chapters)
}

func (c *QuestionController) Tags(ctx *gin.Context) {
	tags, err := c.QuestionService.Tags()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, tags)
}

func (c *QuestionController) Topics(ctx *gin.Context) {
	topics, err := c.QuestionService.Topics()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

func (c *QuestionController) Count(ctx *gin.Context) {
	count, err := c.QuestionService.Count()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"count": count})
}

func (c *QuestionController) WrongQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	questions, err := c.QuestionService.WrongQuestions(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

func (c *QuestionController) AttemptedQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	questions, err := c.QuestionService.AttemptedQuestions(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

func (c *QuestionController) Mark(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req model.MarkCreate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	mark, err := c.QuestionService.MarkQuestion(user.UserID, req)
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, mark)
}

func (c *QuestionController) ListMarks(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	marks, err := c.QuestionService.ListMarks(user.UserID, ctx.Query("type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, marks)
}

func (c *QuestionController) DeleteMark(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	markID, err := strconv.ParseUint(ctx.Param("markId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "Invalid mark id")
		return
	}

	if err := c.QuestionService.DeleteMark(user.UserID, uint(markID)); err != nil {
		if errors.Is(err, util.ErrMarkNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
