package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core/analytics"
)

type analyticsApi struct {
	svc *analytics.Service
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *analytics.Service) {
	api := analyticsApi{svc: svc}

	sg := g.Group("/students", jwt)
	sg.GET("/:id/analytics", api.retrieve)
}

// retrieve serves the derived analytics record for a student and term.
// Students see their own; staff and admins see anyone's.
func (api *analyticsApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	studentID := ctx.Param("id")
	if studentID != claims.Subject && !(claims.IsStaff || claims.IsAdmin) {
		return errHttpForbidden
	}

	termID := ctx.QueryParam("term")
	if termID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "term is required")
	}

	rec, err := api.svc.Get(ctx.Request().Context(), studentID, termID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}
