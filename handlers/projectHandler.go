package handlers

import (
	"context"
	"net/http"
	"strconv"
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

type createProjectInput struct {
	Title               string `json:"title" validate:"required,min=1,max=200"`
	Description         string `json:"description" validate:"max=2000"`
	SprintDurationWeeks int    `json:"sprint_duration_weeks" validate:"omitempty,oneof=1 2"`
	TotalSprints        int    `json:"total_sprints" validate:"omitempty,min=1,max=12"`
}

// CreateProject asks the AI provider for a task breakdown (through the usage
// gate), allocates the tasks into sprints and persists the whole aggregate in
// one transaction together with the badge re-check. An AI failure or an
// exhausted quota still creates a valid project with a single empty sprint.
func CreateProject(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input createProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := middleware.ValidateStruct(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	durationWeeks := input.SprintDurationWeeks
	if durationWeeks == 0 {
		durationWeeks = user.SprintDurationWeeks
	}
	totalSprints := input.TotalSprints
	if totalSprints == 0 {
		totalSprints = 3
	}

	suggestions, quotaExceeded, err := services.GuardAICall(
		c.Request.Context(), aiGate, &user, []services.TaskSuggestion(nil),
		func(ctx context.Context) ([]services.TaskSuggestion, error) {
			return aiProvider.SuggestTasks(ctx, input.Title, input.Description, totalSprints)
		},
	)
	if err != nil {
		// AI failures stop at this boundary and degrade to zero suggestions.
		utils.Logger.Warn("ai_suggestion_failed",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
		utils.ErrorCount.WithLabelValues("create_project", "ai_provider").Inc()
		suggestions = nil
	}

	alloc := services.AllocateSprints(
		services.ValidSuggestions(suggestions),
		totalSprints, durationWeeks, time.Now().UTC(), user.ID,
	)

	project := models.Project{
		UserID:                  user.ID,
		Title:                   input.Title,
		Description:             input.Description,
		TotalSprints:            alloc.TotalSprints,
		SprintDurationWeeks:     durationWeeks,
		Status:                  models.ProjectActive,
		EstimatedCompletionDate: alloc.EstimatedCompletionDate,
		Sprints:                 alloc.Sprints,
	}

	var awarded []models.Badge
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		var txErr error
		awarded, txErr = services.AwardNewBadges(tx, user.ID)
		return txErr
	})
	if err != nil {
		utils.Logger.Error("project_create_failed", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}

	recordBadges(awarded)
	middleware.InvalidateUserCache(user.ID)

	utils.Logger.Info("project_created",
		zap.Uint("user_id", user.ID),
		zap.Uint("project_id", project.ID),
		zap.Int("total_sprints", project.TotalSprints),
		zap.Bool("quota_exceeded", quotaExceeded),
	)

	c.JSON(http.StatusCreated, gin.H{
		"project":        project,
		"quota_exceeded": quotaExceeded,
		"new_badges":     awarded,
	})
}

func GetProjects(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var projects []models.Project
	query := db.DB.Preload("Sprints", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sprint_number")
	}).Order("id")

	if user.Role != models.RoleAdmin {
		query = query.Where("user_id = ?", user.ID)
	} else if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	if err := query.Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load projects"})
		return
	}

	c.JSON(http.StatusOK, projects)
}

func GetProject(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	project, err := loadOwnedProject(c, user)
	if err != nil {
		return
	}

	c.JSON(http.StatusOK, project)
}

type updateProjectStatusInput struct {
	Status models.ProjectStatus `json:"status" validate:"required,oneof=active paused completed"`
}

func UpdateProjectStatus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input updateProjectStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := middleware.ValidateStruct(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := loadOwnedProject(c, user)
	if err != nil {
		return
	}

	var awarded []models.Badge
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).
			Update("status", input.Status).Error; err != nil {
			return err
		}
		var txErr error
		awarded, txErr = services.AwardNewBadges(tx, user.ID)
		return txErr
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update project"})
		return
	}

	recordBadges(awarded)
	middleware.InvalidateUserCache(user.ID)
	project.Status = input.Status

	c.JSON(http.StatusOK, gin.H{"project": project, "new_badges": awarded})
}

// CompleteSprint moves the given active sprint to completed and promotes the
// next sprint in sequence to active, keeping at most one active sprint per
// project. Completing the last sprint completes the project. The status
// transitions and the badge re-check commit in one transaction.
func CompleteSprint(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	project, err := loadOwnedProject(c, user)
	if err != nil {
		return
	}

	sprintNumber, err := strconv.Atoi(c.Param("num"))
	if err != nil || sprintNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprint number"})
		return
	}

	var sprint models.Sprint
	var awarded []models.Badge
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ? AND sprint_number = ?", project.ID, sprintNumber).
			First(&sprint).Error; err != nil {
			return err
		}
		if sprint.Status != models.SprintActive {
			return errSprintNotActive
		}

		if err := tx.Model(&sprint).Update("status", models.SprintCompleted).Error; err != nil {
			return err
		}
		sprint.Status = models.SprintCompleted

		res := tx.Model(&models.Sprint{}).
			Where("project_id = ? AND sprint_number = ?", project.ID, sprintNumber+1).
			Update("status", models.SprintActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// No sprint left to promote: the project is done.
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).
				Update("status", models.ProjectCompleted).Error; err != nil {
				return err
			}
		}

		var txErr error
		awarded, txErr = services.AwardNewBadges(tx, user.ID)
		return txErr
	})
	if err == errSprintNotActive {
		c.JSON(http.StatusConflict, gin.H{"error": "sprint is not active"})
		return
	}
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "sprint not found"})
		return
	}
	if err != nil {
		utils.Logger.Error("sprint_complete_failed",
			zap.Uint("project_id", project.ID),
			zap.Int("sprint_number", sprintNumber),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete sprint"})
		return
	}

	recordBadges(awarded)
	middleware.InvalidateUserCache(user.ID)

	utils.Logger.Info("sprint_completed",
		zap.Uint("user_id", user.ID),
		zap.Uint("project_id", project.ID),
		zap.Int("sprint_number", sprintNumber),
	)

	c.JSON(http.StatusOK, gin.H{"sprint": sprint, "new_badges": awarded})
}

// loadOwnedProject fetches the :id project and enforces ownership. On error
// it has already written the response.
func loadOwnedProject(c *gin.Context, user models.User) (models.Project, error) {
	var project models.Project
	query := db.DB.Preload("Sprints", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sprint_number")
	}).Preload("Sprints.Tasks")

	if err := query.First(&project, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return project, err
	}
	if project.UserID != user.ID && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return project, errForbidden
	}
	return project, nil
}

func recordBadges(awarded []models.Badge) {
	for _, b := range awarded {
		utils.BadgesAwarded.WithLabelValues(b.ID).Inc()
		utils.Logger.Info("badge_awarded", zap.String("badge_id", b.ID))
	}
}
