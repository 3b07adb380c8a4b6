package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core/quiz"
)

type quizApi struct {
	svc *quiz.Service
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quiz.Service) {
	api := quizApi{svc: svc}

	qg := g.Group("/quizzes", jwt)
	qg.GET("", api.query)
	qg.POST("", api.create, contributorMiddleware())
	qg.GET("/:id", api.retrieve)
	qg.PUT("/:id", api.update, contributorMiddleware())
	qg.DELETE("/:id", api.destroy, contributorMiddleware())
	qg.GET("/:id/statistics", api.statistics, contributorMiddleware())
	qg.GET("/:id/question-accuracy", api.questionAccuracy, contributorMiddleware())
	qg.POST("/:id/questions", api.addQuestions, contributorMiddleware())
	qg.PUT("/:id/questions/:qid", api.updateQuestion, contributorMiddleware())
	qg.DELETE("/:id/questions/:qid", api.deleteQuestion, contributorMiddleware())
	qg.POST("/:id/attempts", api.startAttempt)

	ag := g.Group("/attempts", jwt)
	ag.POST("/:id/submit", api.submit)
	ag.GET("/:id/result", api.result)

	mg := g.Group("/me", jwt)
	mg.GET("/attempts", api.myAttempts)
	mg.GET("/quiz-stats", api.myStats)
}

// QuizInfo annotates a Quiz with its clock-derived status and the caller's
// current eligibility. Neither is ever stored.
type QuizInfo struct {
	quiz.Quiz
	Status      string `json:"status"`
	CanAttempt  bool   `json:"can_attempt"`
	Eligibility string `json:"eligibility"`
}

type QuizDetailResponse struct {
	QuizInfo
	Questions []quiz.Question `json:"questions"`
}

// Handlers

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	q, err := api.svc.CreateQuiz(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *quizApi) query(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	filter := new(quiz.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []QuizInfo{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	quizzes, err := api.svc.Filter(reqCtx, *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}

	infos := make([]QuizInfo, 0, len(quizzes))
	for _, q := range quizzes {
		info, err := api.quizInfo(ctx, claims.Subject, q)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}
	return ctx.JSON(http.StatusOK, infos)
}

func (api *quizApi) quizInfo(ctx echo.Context, userID string, q quiz.Quiz) (QuizInfo, error) {
	ok, reason, err := api.svc.CanAttempt(ctx.Request().Context(), userID, q)
	if err != nil {
		return QuizInfo{}, errors.Wrap(err, "checking eligibility")
	}
	return QuizInfo{Quiz: q, Status: q.Status(), CanAttempt: ok, Eligibility: reason}, nil
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	q, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return trapQuizErr(err)
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	info, err := api.quizInfo(ctx, claims.Subject, q)
	if err != nil {
		return err
	}

	// Question's answer fields are not serialized
	questions, err := api.svc.QueryQuestions(reqCtx, q.ID)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []quiz.Question{}
	}
	return ctx.JSON(http.StatusOK, QuizDetailResponse{QuizInfo: info, Questions: questions})
}

func (api *quizApi) update(ctx echo.Context) error {
	if err := api.checkQuizOwnership(ctx); err != nil {
		return err
	}

	var data quiz.UpdateQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	q, err := api.svc.UpdateQuiz(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return trapQuizErr(err)
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	if err := api.checkQuizOwnership(ctx); err != nil {
		return err
	}

	force, _ := strconv.ParseBool(ctx.QueryParam("force"))
	if err := api.svc.DeleteQuiz(ctx.Request().Context(), ctx.Param("id"), force); err != nil {
		return trapQuizErr(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *quizApi) statistics(ctx echo.Context) error {
	stats, err := api.svc.QuizStatistics(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapQuizErr(err)
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *quizApi) questionAccuracy(ctx echo.Context) error {
	report, err := api.svc.QuestionAccuracyReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapQuizErr(err)
	}
	if report == nil {
		report = []quiz.QuestionAccuracy{}
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *quizApi) addQuestions(ctx echo.Context) error {
	if err := api.checkQuizOwnership(ctx); err != nil {
		return err
	}

	var data AddQuestionsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddQuestionsRequest")
	}

	questions, err := api.svc.AddQuestions(ctx.Request().Context(), ctx.Param("id"), data.Questions)
	if err != nil {
		return trapQuizErr(err)
	}
	return ctx.JSON(http.StatusCreated, questions)
}

func (api *quizApi) updateQuestion(ctx echo.Context) error {
	if err := api.checkQuizOwnership(ctx); err != nil {
		return err
	}

	var data quiz.UpdateQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	q, err := api.svc.UpdateQuestion(ctx.Request().Context(), ctx.Param("id"), ctx.Param("qid"), data)
	if err != nil {
		return trapQuizErr(err)
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) deleteQuestion(ctx echo.Context) error {
	if err := api.checkQuizOwnership(ctx); err != nil {
		return err
	}

	if err := api.svc.DeleteQuestion(ctx.Request().Context(), ctx.Param("id"), ctx.Param("qid")); err != nil {
		return trapQuizErr(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *quizApi) startAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.Start(
		ctx.Request().Context(),
		claims.Subject,
		ctx.Param("id"),
		ctx.RealIP(),
		ctx.Request().UserAgent(),
	)
	if err != nil {
		return trapQuizErr(err)
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *quizApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data quiz.SubmitAnswers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAnswers")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	res, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.Answers)
	if err != nil {
		return trapQuizErr(err)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *quizApi) result(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res, err := api.svc.Result(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return trapQuizErr(err)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *quizApi) myAttempts(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var quizIDs []string
	if quizID := ctx.QueryParam("quiz_id"); quizID != "" {
		quizIDs = append(quizIDs, quizID)
	}

	attempts, err := api.svc.QueryUserAttempts(ctx.Request().Context(), claims.Subject, quizIDs...)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	if attempts == nil {
		attempts = []quiz.Attempt{}
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *quizApi) myStats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	stats, err := api.svc.UserQuizStats(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "computing user stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// checkQuizOwnership lets admins through; contributors may only touch their
// own quizzes. Someone else's quiz reports the same way as a missing one,
// so the response never reveals whether the id exists. A missing quiz falls
// through so handlers report it themselves.
func (api *quizApi) checkQuizOwnership(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin {
		return nil
	}

	q, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == quiz.ErrQuizNotFound {
			return nil
		}
		return errors.Wrap(err, "finding quiz by ID")
	}
	if q.CreatedBy != claims.Subject {
		return errHttpNotFound
	}
	return nil
}

func trapQuizErr(err error) error {
	switch errors.Cause(err) {
	case quiz.ErrQuizNotFound, quiz.ErrQuestionNotFound, quiz.ErrAttemptNotFound:
		return errHttpNotFound
	case quiz.ErrAttemptCompleted:
		return errAttemptCompleted
	case quiz.ErrQuizHasAttempts:
		return echo.NewHTTPError(http.StatusConflict, quiz.ErrQuizHasAttempts.Error())
	}
	return err
}

type AddQuestionsRequest struct {
	Questions []quiz.NewQuestion `json:"questions"`
}
