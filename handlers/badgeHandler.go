package handlers

import (
	"net/http"

	"github.com/Baltarist/Perscrum-sub000/db"
	"github.com/Baltarist/Perscrum-sub000/middleware"
	"github.com/Baltarist/Perscrum-sub000/models"
	"github.com/gin-gonic/gin"
)

// GetBadgeCatalog returns the static badge definitions in catalog order.
func GetBadgeCatalog(c *gin.Context) {
	var badges []models.Badge
	if err := db.DB.Order("sort_order").Find(&badges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load badges"})
		return
	}
	c.JSON(http.StatusOK, badges)
}

func GetMyBadges(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var earned []models.UserBadge
	if err := db.DB.Preload("Badge").Where("user_id = ?", user.ID).
		Joins("JOIN badges ON badges.id = user_badges.badge_id").
		Order("badges.sort_order").
		Find(&earned).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load badges"})
		return
	}

	c.JSON(http.StatusOK, earned)
}
