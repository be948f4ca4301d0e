package handlers

import (
	"bms/internal/apperr"
	"bms/internal/calendar"

	"github.com/gofiber/fiber/v2"
)

// Kalender dikembalikan sebagai text/plain, bukan JSON.
func sendText(c *fiber.Ctx, body string) error {
	c.Type("txt", "utf-8")
	return c.Status(fiber.StatusOK).SendString(body)
}

func (h *Handler) DailyCalendar(c *fiber.Ctx) error {
	u := actor(c)
	text, err := h.Calendar.Daily(c.UserContext(), u.TeamID, u.ID, c.Params("date"))
	if err != nil {
		return respondError(c, err)
	}
	return sendText(c, text)
}

func (h *Handler) MonthlyCalendar(c *fiber.Ctx) error {
	year, err := c.ParamsInt("year")
	if err != nil {
		return respondError(c, apperr.Validation(calendar.MsgYearRange))
	}
	month, err := c.ParamsInt("month")
	if err != nil {
		return respondError(c, apperr.Validation(calendar.MsgMonthRange))
	}

	u := actor(c)
	text, err := h.Calendar.Monthly(c.UserContext(), u.TeamID, u.ID, year, month)
	if err != nil {
		return respondError(c, err)
	}
	return sendText(c, text)
}
