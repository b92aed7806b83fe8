package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core/report"
	"github.com/trezcool/maendeleo/core/user"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", jwt)
	rg.POST("/compile", api.compile, staffMiddleware())
	rg.GET("/:id", api.retrieve)
	rg.POST("/:id/submit", api.submitForReview, staffMiddleware(user.RoleStaffTeacher, user.RoleAdminPrincipal))
	rg.POST("/:id/steps/:num", api.actOnStep, staffMiddleware())
}

func (api *reportApi) compile(ctx echo.Context) error {
	var data CompileRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompileRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	r, err := api.svc.Compile(ctx.Request().Context(), data.StudentID, data.TermID, data.CycleID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) submitForReview(ctx echo.Context) error {
	r, err := api.svc.SubmitForReview(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

// actOnStep records an approver decision on one workflow step. The actor's
// role must match the step's approver role; the workflow engine enforces it.
func (api *reportApi) actOnStep(ctx echo.Context) error {
	num, err := strconv.Atoi(ctx.Param("num"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid step number")
	}

	var data StepActionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StepActionRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	r, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}

	// act with whichever of the actor's roles gates this step
	step, ok := r.PendingStep()
	if !ok || step.Number != num {
		return report.ErrStepNotActive
	}
	var actorRole string
	for _, role := range claims.Roles {
		if role == step.ApproverRole {
			actorRole = role
			break
		}
	}
	if actorRole == "" {
		return report.ErrStepNotActive
	}

	r, err = api.svc.ActOnStep(ctx.Request().Context(), r.ID, num, actorRole, data.Decision, data.Comments)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}
