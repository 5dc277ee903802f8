package handlers

import (
	"net/http"

	"github.com/Baltarist/Perscrum-sub000/middleware"
	"github.com/Baltarist/Perscrum-sub000/services"
	"github.com/Baltarist/Perscrum-sub000/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func GetStats(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := services.CalculateUserStats(user.ID, utils.Logger)
	if err != nil {
		utils.Logger.Error("stats_failed", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
