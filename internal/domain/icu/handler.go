package icu

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// ReportRenderer turns a session into a downloadable document.
type ReportRenderer interface {
	Render(w io.Writer, s SessionResult, generatedAt time.Time) error
	FileName(s SessionResult) string
	ContentType() string
}

type Handler struct {
	svc    *Service
	report ReportRenderer
	now    func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// SetReportRenderer enables the report download route.
func (h *Handler) SetReportRenderer(r ReportRenderer) {
	h.report = r
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/cases", h.ListCases)
	api.GET("/cases/:id", h.GetCase)
	api.GET("/cases/:id/trend", h.GetCaseTrend)

	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id/age", h.UpdatePatientAge)

	api.POST("/sessions/preview", h.PreviewSession)
	api.POST("/sessions", h.SimulateSession)

	if h.report != nil {
		api.GET("/reports/:case_id", h.DownloadReport)
	}
}

// -- Case Handlers --

func (h *Handler) ListCases(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ListCases())
}

type caseResponse struct {
	ID       int            `json:"id"`
	Vitals   VitalsSnapshot `json:"vitals"`
	Protocol ProtocolRecord `json:"protocol"`
}

// GetCase follows the lenient lookup policy: an unknown id is an empty
// payload, not a 404.
func (h *Handler) GetCase(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	vitals, protocol := h.svc.GetCase(id)
	if protocol.Actions == nil {
		protocol.Actions = []string{}
	}
	return c.JSON(http.StatusOK, caseResponse{ID: id, Vitals: vitals, Protocol: protocol})
}

func (h *Handler) GetCaseTrend(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	points := DefaultTrendPoints
	if v := c.QueryParam("points"); v != "" {
		points, err = strconv.Atoi(v)
		if err != nil || points <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid points")
		}
	}
	return c.JSON(http.StatusOK, h.svc.CaseTrend(id, points))
}

// -- Patient Handlers --

func (h *Handler) ListPatients(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ListPatients())
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

type ageRequest struct {
	Age int `json:"age"`
}

func (h *Handler) UpdatePatientAge(c echo.Context) error {
	var req ageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdatePatientAge(c.Param("id"), req.Age)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// -- Session Handlers --

type sessionRequest struct {
	CaseID    int    `json:"case_id"`
	PatientID string `json:"patient_id"`
	Age       *int   `json:"age,omitempty"`
}

type sessionResponse struct {
	SessionResult
	RiskLabel string `json:"risk_label"`
	Alarming  bool   `json:"alarming"`
}

func newSessionResponse(s SessionResult) sessionResponse {
	if s.Protocol.Actions == nil {
		s.Protocol.Actions = []string{}
	}
	return sessionResponse{SessionResult: s, RiskLabel: s.Risk.Label(), Alarming: s.Vitals.Alarming()}
}

func (h *Handler) PreviewSession(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Preview(c.Request().Context(), req.CaseID, req.PatientID, req.Age)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(res))
}

func (h *Handler) SimulateSession(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Simulate(c.Request().Context(), req.CaseID, req.PatientID, req.Age)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusCreated, newSessionResponse(res))
}

// -- Report Handlers --

func (h *Handler) DownloadReport(c echo.Context) error {
	caseID, err := strconv.Atoi(c.Param("case_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	res, err := h.svc.ExportSession(caseID, patientID)
	if err != nil {
		return sessionError(err)
	}

	var buf bytes.Buffer
	if err := h.report.Render(&buf, res, h.now()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+h.report.FileName(res)+`"`)
	return c.Blob(http.StatusOK, h.report.ContentType(), buf.Bytes())
}

func sessionError(err error) error {
	switch {
	case IsUnknownCase(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	var recErr *recordError
	if errors.As(err, &recErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
