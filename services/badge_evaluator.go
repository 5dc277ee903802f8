package services

import (
	"time"

	"github.com/Baltarist/Perscrum-sub000/models"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

// EvaluateBadges is a pure function over an in-memory snapshot: it returns the
// IDs of badges the user has newly earned, in catalog order. Badges already in
// the snapshot are skipped, so running it twice on unchanged data returns
// nothing the second time. Rules never short-circuit each other and missing
// collections count as empty.
func EvaluateBadges(user *models.User, projects []models.Project) []string {
	earned := make(map[string]bool, len(user.Badges))
	for _, ub := range user.Badges {
		earned[ub.BadgeID] = true
	}

	newly := make([]string, 0, len(BadgeCatalog))
	for _, badge := range BadgeCatalog {
		if earned[badge.ID] {
			continue
		}
		if badgeRuleSatisfied(badge.ID, user, projects) {
			newly = append(newly, badge.ID)
		}
	}
	return newly
}

func badgeRuleSatisfied(badgeID string, user *models.User, projects []models.Project) bool {
	switch badgeID {
	case BadgeGoalHunter:
		return hasCompletedProject(projects)
	case BadgeSprintWarrior:
		return hasThreeCompletedSprints(projects)
	case BadgeStreakMaster:
		return distinctCheckinDays(user.Checkins) >= 5
	case BadgeNightOwl:
		return hasTaskCompletedInHours(projects, 22, 24)
	case BadgeEarlyBird:
		return hasTaskCompletedInHours(projects, 0, 7)
	case BadgePlanningGuru:
		return hasFullyPlannedActiveSprint(projects)
	}
	return false
}

func hasCompletedProject(projects []models.Project) bool {
	for _, p := range projects {
		if p.Status == models.ProjectCompleted {
			return true
		}
	}
	return false
}

func hasThreeCompletedSprints(projects []models.Project) bool {
	for _, p := range projects {
		completed := 0
		for _, s := range p.Sprints {
			if s.Status == models.SprintCompleted {
				completed++
			}
		}
		if completed >= 3 {
			return true
		}
	}
	return false
}

// distinctCheckinDays counts distinct calendar dates; multiple check-ins on
// the same day count once.
func distinctCheckinDays(checkins []models.DailyCheckin) int {
	days := make(map[string]bool, len(checkins))
	for _, c := range checkins {
		day := c.Day
		if day == "" {
			day = c.CreatedAt.Format(dayLayout)
		}
		days[day] = true
	}
	return len(days)
}

// hasTaskCompletedInHours reports whether any done task has a completion
// hour-of-day in [fromHour, toHour).
func hasTaskCompletedInHours(projects []models.Project, fromHour, toHour int) bool {
	for _, p := range projects {
		for _, s := range p.Sprints {
			for _, t := range s.Tasks {
				if t.Status != models.TaskDone || t.CompletedAt == nil {
					continue
				}
				h := t.CompletedAt.Hour()
				if h >= fromHour && h < toHour {
					return true
				}
			}
		}
	}
	return false
}

// hasFullyPlannedActiveSprint checks the Planning Guru rule: some active
// sprint with a valid date range has at least one task planned for every
// calendar day it spans. Returns on the first sprint that qualifies.
func hasFullyPlannedActiveSprint(projects []models.Project) bool {
	for _, p := range projects {
		for _, s := range p.Sprints {
			if s.Status != models.SprintActive || s.StartDate.IsZero() || s.EndDate.IsZero() {
				continue
			}
			if sprintFullyPlanned(s) {
				return true
			}
		}
	}
	return false
}

func sprintFullyPlanned(s models.Sprint) bool {
	planned := make(map[string]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.PlannedDate != nil {
			planned[t.PlannedDate.Format(dayLayout)] = true
		}
	}
	for d := truncateToDay(s.StartDate); !d.After(truncateToDay(s.EndDate)); d = d.AddDate(0, 0, 1) {
		if !planned[d.Format(dayLayout)] {
			return false
		}
	}
	return true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AwardNewBadges loads the user's full aggregate inside tx, runs the
// evaluator and persists any newly earned badges. Callers run it after every
// mutating action, in the same transaction as the mutation, so a crash cannot
// leave a badge half granted. Returns the freshly awarded catalog entries.
func AwardNewBadges(tx *gorm.DB, userID uint) ([]models.Badge, error) {
	var user models.User
	if err := tx.Preload("Badges").Preload("Checkins").First(&user, userID).Error; err != nil {
		return nil, err
	}
	var projects []models.Project
	if err := tx.Preload("Sprints.Tasks").Where("user_id = ?", userID).
		Order("id").Find(&projects).Error; err != nil {
		return nil, err
	}

	newIDs := EvaluateBadges(&user, projects)
	if len(newIDs) == 0 {
		return nil, nil
	}

	grants := make([]models.UserBadge, 0, len(newIDs))
	for _, id := range newIDs {
		grants = append(grants, models.UserBadge{UserID: userID, BadgeID: id})
	}
	if err := tx.Create(&grants).Error; err != nil {
		return nil, err
	}

	awarded := make([]models.Badge, 0, len(newIDs))
	for _, badge := range BadgeCatalog {
		for _, id := range newIDs {
			if badge.ID == id {
				awarded = append(awarded, badge)
			}
		}
	}
	return awarded, nil
}
