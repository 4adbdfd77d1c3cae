package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core/academic"
)

type academicApi struct {
	svc      *academic.Service
	validate *validator.Validate
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service, validate *validator.Validate) {
	api := academicApi{
		svc:      svc,
		validate: validate,
	}

	gg := g.Group("/grades", jwt)
	gg.POST("", api.createGrade, staffMiddleware())
	gg.GET("", api.queryGrades)
	gg.GET("/:id", api.retrieveGrade)
	gg.PUT("/:id", api.renameGrade, staffMiddleware())
	gg.DELETE("/:id", api.destroyGrade, adminMiddleware())

	cg := g.Group("/courses", jwt)
	cg.POST("", api.createCourse, staffMiddleware())
	cg.GET("", api.queryCourses)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.renameCourse, staffMiddleware())
	cg.DELETE("/:id", api.destroyCourse, adminMiddleware())

	ug := g.Group("/units", jwt, staffMiddleware())
	ug.POST("", api.createUnit)
	ug.PUT("/:id", api.renameUnit)
	ug.DELETE("/:id", api.destroyUnit)

	tg := g.Group("/topics", jwt, staffMiddleware())
	tg.POST("", api.createTopic)
	tg.PUT("/:id", api.renameTopic)
	tg.DELETE("/:id", api.destroyTopic)

	og := g.Group("/outcomes", jwt, staffMiddleware())
	og.POST("", api.createOutcome)
	og.PUT("/:id", api.updateOutcome)
	og.DELETE("/:id", api.destroyOutcome)
}

// pathID parses the ":id" path param.
func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

// Grade handlers

func (api *academicApi) createGrade(ctx echo.Context) error {
	var data academic.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.CreateGrade(data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grade)
}

func (api *academicApi) queryGrades(ctx echo.Context) error {
	withCourses, _ := strconv.ParseBool(ctx.QueryParam("with_courses"))

	grades, err := api.svc.QueryGrades(withCourses)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []academic.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *academicApi) retrieveGrade(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	grade, err := api.svc.GetGrade(id)
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding grade by ID")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *academicApi) renameGrade(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data academic.Rename
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rename")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.RenameGrade(id, data)
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "renaming grade")
	}
	return ctx.JSON(http.StatusOK, grade)
}

func (api *academicApi) destroyGrade(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteGrade(id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Course handlers

func (api *academicApi) createCourse(ctx echo.Context) error {
	var data academic.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.CreateCourse(data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *academicApi) queryCourses(ctx echo.Context) error {
	gradeID, _ := strconv.Atoi(ctx.QueryParam("grade_id"))

	courses, err := api.svc.QueryCourses(gradeID)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []academic.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *academicApi) retrieveCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	deep, _ := strconv.ParseBool(ctx.QueryParam("deep"))

	course, err := api.svc.GetCourse(id, deep)
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *academicApi) renameCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data academic.Rename
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rename")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.RenameCourse(id, data)
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "renaming course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *academicApi) destroyCourse(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteCourse(id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Unit handlers

func (api *academicApi) createUnit(ctx echo.Context) error {
	var data academic.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	unit, err := api.svc.CreateUnit(data)
	if err != nil {
		return errors.Wrap(err, "creating unit")
	}
	return ctx.JSON(http.StatusCreated, unit)
}

func (api *academicApi) renameUnit(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data academic.Rename
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rename")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	unit, err := api.svc.RenameUnit(id, data)
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "renaming unit")
	}
	return ctx.JSON(http.StatusOK, unit)
}

func (api *academicApi) destroyUnit(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteUnit(id); err != nil {
		return errors.Wrap(err, "deleting unit")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Topic handlers

func (api *academicApi) createTopic(ctx echo.Context) error {
	var data academic.NewTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	topic, err := api.svc.CreateTopic(data)
	if err != nil {
		return errors.Wrap(err, "creating topic")
	}
	return ctx.JSON(http.StatusCreated, topic)
}

func (api *academicApi) renameTopic(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data academic.Rename
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rename")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	topic, err := api.svc.RenameTopic(id, data)
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "renaming topic")
	}
	return ctx.JSON(http.StatusOK, topic)
}

func (api *academicApi) destroyTopic(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteTopic(id); err != nil {
		return errors.Wrap(err, "deleting topic")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// LearningOutcome handlers

func (api *academicApi) createOutcome(ctx echo.Context) error {
	var data academic.NewOutcome
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOutcome")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	outcome, err := api.svc.CreateOutcome(data)
	if err != nil {
		return errors.Wrap(err, "creating outcome")
	}
	return ctx.JSON(http.StatusCreated, outcome)
}

func (api *academicApi) updateOutcome(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data academic.NewOutcome
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOutcome")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	outcome, err := api.svc.UpdateOutcome(academic.LearningOutcome{
		ID:          id,
		TopicID:     data.TopicID,
		Code:        data.Code,
		Description: data.Description,
	})
	if err != nil {
		if errors.Cause(err) == academic.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating outcome")
	}
	return ctx.JSON(http.StatusOK, outcome)
}

func (api *academicApi) destroyOutcome(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteOutcome(id); err != nil {
		return errors.Wrap(err, "deleting outcome")
	}
	return ctx.NoContent(http.StatusNoContent)
}
