package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/usmle-trivia/quiz_api/shared"
)

type UserHandler struct {
	userSvc UserServiceInterface
}

func NewUserHandler(userSvc UserServiceInterface) *UserHandler {
	return &UserHandler{
		userSvc: userSvc,
	}
}

// @Summary Get user statistics
// @Description Get the caller's quiz statistics: points, level, accuracy, streak
// @Tags user
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.UserStatsResponse}
// @Router /api/v1/user/stats [get]
func (h *UserHandler) GetUserStats(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	stats, err := h.userSvc.GetUserStats(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", stats)
}

// @Summary Get leaderboard
// @Description Get the top users ranked by points, with the caller's placement
// @Tags leaderboard
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string false "User Bearer Token" default(Bearer <user_token>)
// @Param limit query int false "Number of entries" default(10)
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Router /api/v1/leaderboard [get]
func (h *UserHandler) GetLeaderboard(c *fiber.Ctx) error {
	userID, _ := c.Locals(shared.UserID).(string)

	limit := 10
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	leaderboard, err := h.userSvc.GetLeaderboard(userID, limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", leaderboard)
}
