package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	"github.com/trezcool/maendeleo/core/user"
)

type paramApi struct {
	svc     *param.Service
	evalSvc *eval.Service
}

func registerParamAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *param.Service, evalSvc *eval.Service) {
	api := paramApi{svc: svc, evalSvc: evalSvc}

	pg := g.Group("/parameters", jwt)
	pg.POST("", api.create, adminMiddleware())
	pg.GET("/:id", api.retrieve)
	pg.POST("/:id/supersede", api.supersede, adminMiddleware())
	pg.POST("/:id/rubrics", api.addRubric, adminMiddleware())
	pg.POST("/:id/assignment", api.setAssignment, adminMiddleware())

	cg := g.Group("/cycles", jwt)
	cg.POST("", api.createCycle, staffMiddleware(user.RoleStaffCounselor, user.RoleAdminPrincipal))
	cg.GET("/:id", api.retrieveCycle)
	cg.POST("/:id/activate", api.activateCycle, adminMiddleware())
	cg.POST("/:id/complete", api.completeCycle, adminMiddleware())
}

func (api *paramApi) create(ctx echo.Context) error {
	var data param.NewParameter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParameter")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating parameter")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paramApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paramApi) supersede(ctx echo.Context) error {
	var data param.NewParameter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParameter")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.Supersede(ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paramApi) addRubric(ctx echo.Context) error {
	var data NewRubricRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRubricRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	r, err := api.svc.AddRubricVersion(ctx.Param("id"), data.Levels, data.Publish)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *paramApi) setAssignment(ctx echo.Context) error {
	var data NewAssignmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignmentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	a, err := api.evalSvc.CreateAssignment(ctx.Param("id"), data.Weights)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *paramApi) createCycle(ctx echo.Context) error {
	var data NewCycleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCycleRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, err := api.evalSvc.CreateCycle(data.TermID, data.Name, data.StartsAt, data.EndsAt, data.ParameterIDs, data.Roles)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *paramApi) retrieveCycle(ctx echo.Context) error {
	c, err := api.evalSvc.GetCycle(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *paramApi) activateCycle(ctx echo.Context) error {
	c, err := api.evalSvc.ActivateCycle(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *paramApi) completeCycle(ctx echo.Context) error {
	c, err := api.evalSvc.CompleteCycle(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}
