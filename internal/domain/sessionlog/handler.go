package sessionlog

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/RealHAPPY4/impunity-protocol-sim/pkg/pagination"
)

const exportFileName = "icu_data.csv"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/export", h.ExportSessions)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}

func (h *Handler) ExportSessions(c echo.Context) error {
	var buf bytes.Buffer
	if _, err := h.svc.WriteCSV(c.Request().Context(), &buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exportFileName+`"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
