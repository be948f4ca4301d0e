package v1

import (
	"bms/internal/api/v1/handlers"
	myws "bms/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes memasang semua route. auth adalah middleware.UseToken
// yang sudah dikonfigurasi; hub boleh nil jika WebSocket tidak dipakai.
func RegisterRoutes(app *fiber.App, h *handlers.Handler, auth fiber.Handler, hub *myws.Hub) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to the Business Management System API",
			"success": true,
			"status":  fiber.StatusOK,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// Auth
	api.Post("/auth/register", h.Register)
	api.Post("/auth/login", h.Login)

	// Team
	teamRoutes := api.Group("/teams", auth)
	teamRoutes.Post("/", h.CreateTeam)
	teamRoutes.Get("/:id", h.GetTeam)
	teamRoutes.Post("/:id/members", h.AddTeamMember)
	teamRoutes.Delete("/:id/members/:userId", h.RemoveTeamMember)
	teamRoutes.Patch("/:id/members/:userId/role", h.UpdateTeamMemberRole)

	// Task
	taskRoutes := api.Group("/tasks", auth)
	taskRoutes.Get("/", h.ListTasks)
	taskRoutes.Post("/", h.CreateTask)
	taskRoutes.Get("/:id", h.GetTask)
	taskRoutes.Put("/:id", h.UpdateTask)
	taskRoutes.Delete("/:id", h.DeleteTask)
	taskRoutes.Post("/:id/comments", h.AddComment)
	taskRoutes.Get("/:id/comments", h.ListComments)
	taskRoutes.Post("/:id/evaluations", h.AddEvaluation)
	taskRoutes.Get("/:id/evaluations", h.ListEvaluations)

	// Meeting
	meetingRoutes := api.Group("/meetings", auth)
	meetingRoutes.Get("/", h.ListMeetings)
	meetingRoutes.Post("/", h.CreateMeeting)
	meetingRoutes.Get("/:id", h.GetMeeting)
	meetingRoutes.Put("/:id", h.UpdateMeeting)
	meetingRoutes.Delete("/:id", h.DeleteMeeting)

	// Calendar
	calendarRoutes := api.Group("/calendar", auth)
	calendarRoutes.Get("/daily/:date", h.DailyCalendar)
	calendarRoutes.Get("/monthly/:year/:month", h.MonthlyCalendar)

	// Profile
	meRoutes := api.Group("/me", auth)
	meRoutes.Get("/", h.GetProfile)
	meRoutes.Patch("/", h.UpdateProfile)
	meRoutes.Delete("/", h.DeleteProfile)
	meRoutes.Post("/join_by_code", h.JoinByCode)
	meRoutes.Get("/average_evaluation", h.AverageEvaluation)

	if hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/meetings", auth, websocket.New(hub.Handler()))
	}
}
