package echoapi

import (
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/user"
)

var (
	errProfNotFoundInCtx = errors.New("profile object not found in echo.Context")
	errNoPermsToSetRole  = "not enough rights to set this role"
)

type profileApi struct {
	svc      user.Service
	validate *validator.Validate
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.Service, validate *validator.Validate) {
	api := profileApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/profiles", jwt)
	pg.POST("", api.create, staffMiddleware())
	pg.GET("", api.query, staffMiddleware())
	pg.DELETE("", api.destroyMultiple, adminMiddleware())
	pg.GET("/roles", api.queryRoles, staffMiddleware())

	// detail endpoints
	dg := pg.Group("/:id", ctxProfileOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *profileApi) create(ctx echo.Context) error {
	var data user.NewProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	// ctxProfile cannot set a role > their own
	ctxProf, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if user.RolePriority(data.Role) > user.RolePriority(ctxProf.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsToSetRole})
	}

	prof, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}

	return ctx.JSON(http.StatusCreated, prof)
}

func (api *profileApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.Profile{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	profs, err := api.svc.Query(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profs == nil {
		profs = []user.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(user.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) update(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(user.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	ctxProf, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if !ctxProf.IsAdmin() {
		// `IsActive`, `Role`, `GradeID` and `Email` can only be changed by admin
		if data.IsActive != nil || data.Role != "" || data.GradeID != nil || data.Email != "" {
			return errHttpForbidden
		}
	}

	if err := data.Validate(prof, api.validate, api.svc); err != nil {
		return err
	}

	// ctxProfile cannot set a role > their own
	if user.RolePriority(data.Role) > user.RolePriority(ctxProf.Role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsToSetRole})
	}

	prof, err = api.svc.Update(prof.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}

	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) destroy(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(user.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}

	// ctxProfile cannot delete themselves
	ctxProf, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if prof.ID == ctxProf.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(prof.ID); err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *profileApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctxProfile cannot delete themselves
	ctxProf, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	sort.Strings(query.IDs)
	if i := sort.SearchStrings(query.IDs, ctxProf.ID); i < len(query.IDs) {
		if match := query.IDs[i]; ctxProf.ID == match {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting profiles")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *profileApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}
