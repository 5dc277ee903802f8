package services

import (
	"github.com/Baltarist/Perscrum-sub000/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	BadgeGoalHunter    = "goal_hunter"
	BadgeSprintWarrior = "sprint_warrior"
	BadgeStreakMaster  = "streak_master"
	BadgeNightOwl      = "night_owl"
	BadgeEarlyBird     = "early_bird"
	BadgePlanningGuru  = "planning_guru"
)

// BadgeCatalog is the static badge definition list. Declaration order is the
// order newly earned badges are reported in.
var BadgeCatalog = []models.Badge{
	{ID: BadgeGoalHunter, Name: "Goal Hunter", Criteria: "Complete your first project", Icon: "trophy", Type: "project", SortOrder: 1},
	{ID: BadgeSprintWarrior, Name: "Sprint Warrior", Criteria: "Complete 3 sprints in a single project", Icon: "zap", Type: "sprint", SortOrder: 2},
	{ID: BadgeStreakMaster, Name: "Streak Master", Criteria: "Check in on 5 different days", Icon: "flame", Type: "streak", SortOrder: 3},
	{ID: BadgeNightOwl, Name: "Night Owl", Criteria: "Complete a task after 22:00", Icon: "moon", Type: "time", SortOrder: 4},
	{ID: BadgeEarlyBird, Name: "Early Bird", Criteria: "Complete a task before 07:00", Icon: "sunrise", Type: "time", SortOrder: 5},
	{ID: BadgePlanningGuru, Name: "Planning Guru", Criteria: "Plan a task for every day of an active sprint", Icon: "calendar", Type: "planning", SortOrder: 6},
}

// SeedBadges upserts the catalog into the badges table at startup. Existing
// rows are refreshed so catalog edits ship with a deploy.
func SeedBadges(db *gorm.DB) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "criteria", "icon", "type", "sort_order"}),
	}).Create(&BadgeCatalog).Error
}
