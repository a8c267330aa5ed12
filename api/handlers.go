package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ParkMe/control"
	"ParkMe/model"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type Handlers struct {
	entryService        *control.EntryService
	exitService         *control.ExitService
	queryService        *control.QueryService
	alreadyClosedStatus int
}

// NewHandlers alreadyClosedStatus 只接受 404 或 409，其它值按 409 处理
func NewHandlers(entry *control.EntryService, exit *control.ExitService, query *control.QueryService, alreadyClosedStatus int) *Handlers {
	if alreadyClosedStatus != http.StatusNotFound {
		alreadyClosedStatus = http.StatusConflict
	}
	return &Handlers{
		entryService:        entry,
		exitService:         exit,
		queryService:        query,
		alreadyClosedStatus: alreadyClosedStatus,
	}
}

type ticketResponse struct {
	TicketID     string       `json:"ticketId"`
	Plate        string       `json:"plate"`
	ParkingLotID string       `json:"parkingLotId"`
	EntryTs      int64        `json:"entryTs"`
	Status       model.Status `json:"status"`
	ExitTs       *int64       `json:"exitTs,omitempty"`
	DurationMin  *int64       `json:"durationMin,omitempty"`
	ChargeUsd    json.Number  `json:"chargeUsd,omitempty"`
}

func newTicketResponse(t *model.Ticket) ticketResponse {
	resp := ticketResponse{
		TicketID:     t.TicketID,
		Plate:        t.Plate,
		ParkingLotID: t.ParkingLotID,
		EntryTs:      t.EntryTs,
		Status:       t.Status,
		ExitTs:       t.ExitTs,
		DurationMin:  t.DurationMin,
	}
	if t.ChargeUsd != nil {
		resp.ChargeUsd = json.Number(t.ChargeUsd.StringFixed(2))
	}
	return resp
}

// param 优先取 query string，其次取表单
func param(c echo.Context, name string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return c.FormValue(name)
}

func (h *Handlers) Entry(c echo.Context) error {
	ticket, err := h.entryService.CreateTicket(c.Request().Context(), param(c, "plate"), param(c, "parkingLotId"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, newTicketResponse(ticket))
}

func (h *Handlers) Exit(c echo.Context) error {
	ticket, err := h.exitService.CloseTicket(c.Request().Context(), param(c, "ticketId"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newTicketResponse(ticket))
}

func (h *Handlers) GetTicket(c echo.Context) error {
	ticket, err := h.queryService.GetTicket(c.Request().Context(), c.Param("ticketId"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newTicketResponse(ticket))
}

func (h *Handlers) OpenTickets(c echo.Context) error {
	tickets, err := h.queryService.OpenTickets(c.Request().Context(), c.QueryParam("plate"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	resp := make([]ticketResponse, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, newTicketResponse(&tickets[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) errorResponse(c echo.Context, err error) error {
	var invalid *control.InvalidRequestError
	switch {
	case errors.As(err, &invalid):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error(), "fields": invalid.Fields})
	case errors.Is(err, control.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Ticket not found"})
	case errors.Is(err, control.ErrAlreadyClosed):
		return c.JSON(h.alreadyClosedStatus, map[string]string{"error": "Ticket is already closed"})
	default:
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}
