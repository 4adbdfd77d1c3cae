package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/quiz"
	"github.com/yedirenklicinar/akademi/core/user"
)

type examApi struct {
	svc        *exam.Service
	profileSvc user.Service
	validate   *validator.Validate
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *exam.Service, profileSvc user.Service, validate *validator.Validate) {
	api := examApi{
		svc:        svc,
		profileSvc: profileSvc,
		validate:   validate,
	}

	tg := g.Group("/tests", jwt)
	tg.POST("", api.create, staffMiddleware())
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.GET("/:id/solve", api.solve)
	tg.PUT("/:id/active", api.setActive, staffMiddleware())
	tg.DELETE("/:id", api.destroy, staffMiddleware())

	sg := g.Group("/submissions", jwt)
	sg.POST("", api.createSubmission)
	sg.GET("", api.querySubmissions)
}

// Handlers

func (api *examApi) create(ctx echo.Context) error {
	var data exam.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	test, err := api.svc.Create(data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, test)
}

func (api *examApi) query(ctx echo.Context) error {
	filter := new(exam.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Test{})
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsStudent {
		// students only see active tests assigned to them or their grade
		if err := api.scopeToStudent(ctx, filter, claims); err != nil {
			return err
		}
	}

	tests, err := api.svc.Query(filter)
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	if tests == nil {
		tests = []exam.Test{}
	}
	return ctx.JSON(http.StatusOK, tests)
}

func (api *examApi) scopeToStudent(ctx echo.Context, filter *exam.QueryFilter, claims Claims) error {
	prof, err := getContextProfile(ctx, api.profileSvc, claims)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	filter.StudentID = prof.ID
	if prof.GradeID != nil {
		filter.GradeID = *prof.GradeID
	}
	active := true
	filter.IsActive = &active
	return nil
}

func (api *examApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	test, err := api.svc.GetByID(id)
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding test by ID")
	}
	if err := api.checkTestAccess(ctx, test); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, test)
}

// solve returns the test with its full ordered question list; the payload the
// quiz screen runs on.
func (api *examApi) solve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	test, err := api.svc.GetForSolving(id)
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "loading test for solving")
	}
	if err := api.checkTestAccess(ctx, test); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, test)
}

// checkTestAccess hides tests a student was not assigned; staff see everything.
func (api *examApi) checkTestAccess(ctx echo.Context, test exam.Test) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsStudent {
		return nil
	}
	if !test.IsActive {
		return errHttpNotFound
	}

	prof, err := getContextProfile(ctx, api.profileSvc, claims)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	for _, sid := range test.StudentIDs {
		if sid == prof.ID {
			return nil
		}
	}
	if prof.GradeID != nil {
		for _, gid := range test.GradeIDs {
			if gid == *prof.GradeID {
				return nil
			}
		}
	}
	return errHttpNotFound
}

func (api *examApi) setActive(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data SetActiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActiveRequest")
	}
	if data.IsActive == nil {
		return validationError("is_active", "this field is required")
	}

	test, err := api.svc.SetActive(id, *data.IsActive)
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "toggling test")
	}
	return ctx.JSON(http.StatusOK, test)
}

func (api *examApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(id); err != nil {
		return errors.Wrap(err, "deleting test")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// createSubmission records a completed attempt. The student is taken from the
// token and the score is recomputed server-side; the client's copy is advisory.
func (api *examApi) createSubmission(ctx echo.Context) error {
	var data exam.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.ID = 0
	data.StudentID = claims.Subject

	test, err := api.svc.GetForSolving(data.TestID)
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return validationError("test_id", "test not found")
		}
		return errors.Wrap(err, "loading test for scoring")
	}
	if err := api.checkTestAccess(ctx, test); err != nil {
		return err
	}
	data.Score = quiz.Score(test, data.Answers)

	sub, err := api.svc.CreateSubmission(data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *examApi) querySubmissions(ctx echo.Context) error {
	filter := new(exam.SubmissionFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Submission{})
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsStudent {
		filter.StudentID = claims.Subject
	}

	subs, err := api.svc.QuerySubmissions(filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []exam.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}
