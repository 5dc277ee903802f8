package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Baltarist/Perscrum-sub000/db"
	"github.com/Baltarist/Perscrum-sub000/middleware"
	"github.com/Baltarist/Perscrum-sub000/models"
	"github.com/Baltarist/Perscrum-sub000/services"
	"github.com/Baltarist/Perscrum-sub000/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type updateTaskStatusInput struct {
	Status models.TaskStatus `json:"status" validate:"required"`
}

// UpdateTaskStatus moves a task to any workflow status. The transition is
// appended to the status history, completed_at is set once on the first move
// into done, and badges are re-checked, all in one transaction.
func UpdateTaskStatus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input updateTaskStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !models.ValidTaskStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task status"})
		return
	}

	task, err := loadOwnedTask(c, user)
	if err != nil {
		return
	}

	var awarded []models.Badge
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		change := models.TaskStatusChange{
			TaskID:     task.ID,
			FromStatus: task.Status,
			ToStatus:   input.Status,
		}
		if err := tx.Create(&change).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": input.Status}
		if input.Status == models.TaskDone && task.CompletedAt == nil {
			now := time.Now().UTC()
			updates["completed_at"] = now
			task.CompletedAt = &now
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		task.Status = input.Status

		var txErr error
		awarded, txErr = services.AwardNewBadges(tx, user.ID)
		return txErr
	})
	if err != nil {
		utils.Logger.Error("task_status_update_failed",
			zap.Uint("task_id", task.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}

	recordBadges(awarded)
	middleware.InvalidateUserCache(user.ID)

	c.JSON(http.StatusOK, gin.H{"task": task, "new_badges": awarded})
}

type planTaskInput struct {
	PlannedDate string `json:"planned_date" validate:"required,datetime=2006-01-02"`
}

// PlanTask sets the day a task is planned for; the Planning Guru check reads
// these dates.
func PlanTask(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input planTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := middleware.ValidateStruct(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plannedDate, err := time.Parse("2006-01-02", input.PlannedDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid planned_date"})
		return
	}

	task, err := loadOwnedTask(c, user)
	if err != nil {
		return
	}

	var awarded []models.Badge
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).
			Update("planned_date", plannedDate).Error; err != nil {
			return err
		}
		var txErr error
		awarded, txErr = services.AwardNewBadges(tx, user.ID)
		return txErr
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to plan task"})
		return
	}

	recordBadges(awarded)
	middleware.InvalidateUserCache(user.ID)
	task.PlannedDate = &plannedDate

	c.JSON(http.StatusOK, gin.H{"task": task, "new_badges": awarded})
}

// SuggestSubtasks runs the second AI-backed operation through the usage gate.
// The fallback shape for this call site is an empty list.
func SuggestSubtasks(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	task, err := loadOwnedTask(c, user)
	if err != nil {
		return
	}

	titles, quotaExceeded, err := services.GuardAICall(
		c.Request.Context(), aiGate, &user, []string(nil),
		func(ctx context.Context) ([]string, error) {
			return aiProvider.SuggestSubtasks(ctx, task.Title, task.Description)
		},
	)
	if err != nil {
		utils.Logger.Warn("ai_subtask_suggestion_failed",
			zap.Uint("task_id", task.ID),
			zap.Error(err),
		)
		utils.ErrorCount.WithLabelValues("suggest_subtasks", "ai_provider").Inc()
		c.JSON(http.StatusOK, gin.H{"subtasks": []models.Subtask{}, "quota_exceeded": false})
		return
	}
	if quotaExceeded {
		c.JSON(http.StatusOK, gin.H{"subtasks": []models.Subtask{}, "quota_exceeded": true})
		return
	}

	subtasks := make([]models.Subtask, 0, len(titles))
	for _, title := range titles {
		subtasks = append(subtasks, models.Subtask{TaskID: task.ID, Title: title})
	}
	if len(subtasks) > 0 {
		if err := db.DB.Create(&subtasks).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save subtasks"})
			return
		}
		middleware.InvalidateUserCache(user.ID)
	}

	c.JSON(http.StatusOK, gin.H{"subtasks": subtasks, "quota_exceeded": false})
}

// loadOwnedTask fetches the :id task and checks the owning project belongs to
// the caller. On error it has already written the response.
func loadOwnedTask(c *gin.Context, user models.User) (models.Task, error) {
	var task models.Task
	if err := db.DB.First(&task, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return task, err
	}

	var ownerID uint
	err := db.DB.Model(&models.Sprint{}).
		Select("projects.user_id").
		Joins("JOIN projects ON projects.id = sprints.project_id").
		Where("sprints.id = ?", task.SprintID).
		Scan(&ownerID).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return task, err
	}
	if ownerID != user.ID && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return task, errForbidden
	}
	return task, nil
}
