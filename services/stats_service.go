package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/Baltarist/Perscrum-sub000/cache"
	"github.com/Baltarist/Perscrum-sub000/db"
	"github.com/Baltarist/Perscrum-sub000/models"
	"go.uber.org/zap"
)

type ProjectStats struct {
	ProjectID        uint    `json:"project_id"`
	TotalTasks       int     `json:"total_tasks"`
	DoneTasks        int     `json:"done_tasks"`
	CompletionRate   float64 `json:"completion_rate"`
	CompletedSprints int     `json:"completed_sprints"`
	TotalPoints      int     `json:"total_points"`
	DonePoints       int     `json:"done_points"`
	Error            error   `json:"-"`
}

type UserStats struct {
	UserID         uint           `json:"user_id"`
	TotalProjects  int            `json:"total_projects"`
	ActiveProjects int            `json:"active_projects"`
	OverallRate    float64        `json:"overall_completion_rate"`
	BadgeCount     int            `json:"badge_count"`
	ProjectStats   []ProjectStats `json:"project_stats"`
	ProcessingTime time.Duration  `json:"processing_time_ms"`
}

// CalculateUserStats computes dashboard stats for every project of a user.
// Each project needs its own queries and they are independent, so one
// goroutine per project; results come back over a channel. The aggregate is
// cached in Redis for a few minutes since it backs a frequently polled view.
func CalculateUserStats(userID uint, logger *zap.Logger) (*UserStats, error) {
	startTime := time.Now()

	cacheKey := fmt.Sprintf("user_stats:%d", userID)
	var cached UserStats
	if err := cache.Get(cacheKey, &cached); err == nil {
		logger.Info("cache_hit", zap.String("key", cacheKey))
		return &cached, nil
	}

	var projects []models.Project
	if err := db.DB.Where("user_id = ?", userID).Find(&projects).Error; err != nil {
		return nil, err
	}

	var badgeCount int64
	if err := db.DB.Model(&models.UserBadge{}).Where("user_id = ?", userID).Count(&badgeCount).Error; err != nil {
		return nil, err
	}

	if len(projects) == 0 {
		return &UserStats{UserID: userID, BadgeCount: int(badgeCount)}, nil
	}

	statsChan := make(chan ProjectStats, len(projects))
	var wg sync.WaitGroup

	for _, project := range projects {
		wg.Add(1)
		go func(p models.Project) {
			defer wg.Done()
			statsChan <- calculateProjectStats(p.ID, logger)
		}(project)
	}

	go func() {
		wg.Wait()
		close(statsChan)
	}()

	var projectStats []ProjectStats
	var totalRate float64
	for stat := range statsChan {
		if stat.Error != nil {
			logger.Warn("project_stats_error",
				zap.Uint("project_id", stat.ProjectID),
				zap.Error(stat.Error),
			)
			continue
		}
		projectStats = append(projectStats, stat)
		totalRate += stat.CompletionRate
	}

	activeCount := 0
	for _, p := range projects {
		if p.Status == models.ProjectActive {
			activeCount++
		}
	}

	overallRate := 0.0
	if len(projectStats) > 0 {
		overallRate = totalRate / float64(len(projectStats))
	}

	result := &UserStats{
		UserID:         userID,
		TotalProjects:  len(projects),
		ActiveProjects: activeCount,
		OverallRate:    overallRate,
		BadgeCount:     int(badgeCount),
		ProjectStats:   projectStats,
		ProcessingTime: time.Since(startTime),
	}

	cache.Set(cacheKey, result, 5*time.Minute)

	logger.Info("stats_calculated",
		zap.Uint("user_id", userID),
		zap.Int("project_count", len(projects)),
		zap.Duration("duration", result.ProcessingTime),
	)

	return result, nil
}

func calculateProjectStats(projectID uint, logger *zap.Logger) ProjectStats {
	stats := ProjectStats{ProjectID: projectID}

	var sprints []models.Sprint
	if err := db.DB.Preload("Tasks").Where("project_id = ?", projectID).
		Order("sprint_number").Find(&sprints).Error; err != nil {
		stats.Error = err
		return stats
	}

	for _, sprint := range sprints {
		if sprint.Status == models.SprintCompleted {
			stats.CompletedSprints++
		}
		for _, task := range sprint.Tasks {
			stats.TotalTasks++
			stats.TotalPoints += task.StoryPoints
			if task.Status == models.TaskDone {
				stats.DoneTasks++
				stats.DonePoints += task.StoryPoints
			}
		}
	}

	if stats.TotalTasks > 0 {
		stats.CompletionRate = float64(stats.DoneTasks) / float64(stats.TotalTasks) * 100
	}

	return stats
}
