package handlers

import (
	"net/http"
	"time"

	"github.com/Baltarist/Perscrum-sub000/db"
	"github.com/Baltarist/Perscrum-sub000/middleware"
	"github.com/Baltarist/Perscrum-sub000/models"
	"github.com/Baltarist/Perscrum-sub000/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type createCheckinInput struct {
	Note string `json:"note" validate:"max=1000"`
}

// CreateCheckin records today's check-in. One row per user per calendar day;
// repeating the call on the same day is a no-op that returns the existing row.
func CreateCheckin(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input createCheckinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := middleware.ValidateStruct(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkin := models.DailyCheckin{
		UserID: user.ID,
		Day:    time.Now().UTC().Format("2006-01-02"),
		Note:   input.Note,
	}

	var awarded []models.Badge
	created := false
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&checkin)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		if !created {
			if err := tx.Where("user_id = ? AND day = ?", user.ID, checkin.Day).
				First(&checkin).Error; err != nil {
				return err
			}
			return nil
		}
		var txErr error
		awarded, txErr = services.AwardNewBadges(tx, user.ID)
		return txErr
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save check-in"})
		return
	}

	recordBadges(awarded)
	if created {
		middleware.InvalidateUserCache(user.ID)
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"checkin":            checkin,
		"already_checked_in": !created,
		"new_badges":         awarded,
	})
}

func GetCheckins(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var checkins []models.DailyCheckin
	if err := db.DB.Where("user_id = ?", user.ID).Order("day DESC").
		Find(&checkins).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load check-ins"})
		return
	}

	c.JSON(http.StatusOK, checkins)
}
