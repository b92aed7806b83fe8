package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core/eval"
)

type evalApi struct {
	svc *eval.Service
}

func registerEvalAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *eval.Service) {
	api := evalApi{svc: svc}

	eg := g.Group("/evaluations", jwt)
	eg.POST("", api.submit)
	eg.GET("", api.queryCurrent)
	eg.GET("/latest", api.getLatest)
}

// submit accepts one stakeholder evaluation. The evaluator is always the
// authenticated user; the body cannot submit on someone else's behalf.
func (api *evalApi) submit(ctx echo.Context) error {
	var data eval.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	data.EvaluatorID = claims.Subject

	ev, err := api.svc.Submit(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ev)
}

// getLatest returns the authenticated evaluator's current evaluation for
// (student, parameter, cycle), so clients can prefill a resubmission form.
func (api *evalApi) getLatest(ctx echo.Context) error {
	studentID := ctx.QueryParam("student")
	parameterID := ctx.QueryParam("parameter")
	cycleID := ctx.QueryParam("cycle")
	if studentID == "" || parameterID == "" || cycleID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student, parameter and cycle are required")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ev, err := api.svc.Latest(studentID, parameterID, claims.Subject, cycleID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ev)
}

func (api *evalApi) queryCurrent(ctx echo.Context) error {
	studentID := ctx.QueryParam("student")
	parameterID := ctx.QueryParam("parameter")
	cycleID := ctx.QueryParam("cycle")
	if studentID == "" || parameterID == "" || cycleID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student, parameter and cycle are required")
	}

	evs, err := api.svc.Current(studentID, parameterID, cycleID)
	if err != nil {
		return err
	}
	if evs == nil {
		evs = []eval.Evaluation{}
	}
	return ctx.JSON(http.StatusOK, evs)
}
