package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mw "github.com/SkillsGen/trainers/middleware"
	"github.com/SkillsGen/trainers/schedule"
)

// Index renders the trainer's upcoming bookings.
func (h *Handler) Index(c echo.Context) error {
	trainerID, _ := mw.IdentityFrom(c.Request().Context())

	bookings, err := h.schedule.ListUpcoming(c.Request().Context(), trainerID)
	if err != nil {
		return internal(err)
	}
	return c.Render(http.StatusOK, "index.html", h.pageData(c, page{
		Title:    "Schedule",
		Schedule: bookings,
	}))
}

// PCQ renders the questionnaires filed against the booking in ?key.
// Without a key it answers "Fail" and touches nothing.
func (h *Handler) PCQ(c echo.Context) error {
	if _, ok := c.QueryParams()["key"]; !ok {
		return c.String(http.StatusOK, "Fail")
	}
	pcqs, err := h.questionnaires(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "pcq.html", h.pageData(c, page{
		Title: "Questionnaires",
		PCQ:   pcqs,
	}))
}

// APISchedule returns the caller's upcoming bookings as JSON.
func (h *Handler) APISchedule(c echo.Context) error {
	trainerID, _ := mw.IdentityFrom(c.Request().Context())

	bookings, err := h.schedule.ListUpcoming(c.Request().Context(), trainerID)
	if err != nil {
		return internal(err)
	}
	return c.JSON(http.StatusOK, bookings)
}

// APIPCQ returns the questionnaires for ?key as JSON.
func (h *Handler) APIPCQ(c echo.Context) error {
	if c.QueryParam("key") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key param not set")
	}
	pcqs, err := h.questionnaires(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pcqs)
}

func (h *Handler) questionnaires(c echo.Context) (schedule.BookingPCQs, error) {
	bookingID, err := strconv.ParseInt(c.QueryParam("key"), 10, 64)
	if err != nil {
		return schedule.BookingPCQs{}, echo.NewHTTPError(http.StatusBadRequest, "invalid key")
	}

	pcqs, err := h.schedule.Questionnaires(c.Request().Context(), bookingID)
	if err != nil {
		if errors.Is(err, schedule.ErrBookingNotFound) {
			return schedule.BookingPCQs{}, echo.NewHTTPError(http.StatusNotFound, "booking not found")
		}
		return schedule.BookingPCQs{}, internal(err)
	}
	return pcqs, nil
}
