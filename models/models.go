package models

import "time"

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
)

type SprintStatus string

const (
	SprintPlanning  SprintStatus = "planning"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

type TaskStatus string

const (
	TaskBacklog    TaskStatus = "backlog"
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// ValidTaskStatus reports whether s is a known workflow status. The workflow
// is ordered but any-to-any transitions are permitted.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskBacklog, TaskTodo, TaskInProgress, TaskReview, TaskDone:
		return true
	}
	return false
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Email            string           `gorm:"unique" json:"email"`
	Username         string           `gorm:"unique" json:"username"`
	PasswordHash     string           `json:"-"`
	Role             string           `gorm:"default:user" json:"role"`
	SubscriptionTier SubscriptionTier `gorm:"default:free" json:"subscription_tier"`
	// AIUsageCount is a monotonic counter; it only gates the free tier.
	AIUsageCount        int            `gorm:"column:ai_usage_count;default:0" json:"ai_usage_count"`
	SprintDurationWeeks int            `gorm:"default:2" json:"sprint_duration_weeks"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	Projects            []Project      `gorm:"foreignKey:UserID" json:"projects,omitempty"`
	Badges              []UserBadge    `gorm:"foreignKey:UserID" json:"badges,omitempty"`
	Checkins            []DailyCheckin `gorm:"foreignKey:UserID" json:"checkins,omitempty"`
}

type Project struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"index" json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// TotalSprints is fixed at creation time; sprints 1..TotalSprints exist
	// with no gaps.
	TotalSprints            int           `json:"total_sprints"`
	SprintDurationWeeks     int           `json:"sprint_duration_weeks"`
	Status                  ProjectStatus `gorm:"default:active" json:"status"`
	EstimatedCompletionDate time.Time     `json:"estimated_completion_date"`
	CreatedAt               time.Time     `gorm:"autoCreateTime" json:"created_at"`
	Sprints                 []Sprint      `gorm:"foreignKey:ProjectID" json:"sprints,omitempty"`
}

type Sprint struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProjectID uint `gorm:"index" json:"project_id"`
	// SprintNumber is 1-based and contiguous within a project.
	SprintNumber int          `json:"sprint_number"`
	Status       SprintStatus `gorm:"default:planning" json:"status"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Tasks        []Task       `gorm:"foreignKey:SprintID" json:"tasks,omitempty"`
}

type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SprintID    uint       `gorm:"index" json:"sprint_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StoryPoints int        `json:"story_points"`
	Status      TaskStatus `gorm:"default:backlog" json:"status"`
	// CompletedAt is set exactly once, on the first transition into done.
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	PlannedDate   *time.Time         `json:"planned_date,omitempty"`
	CreatedBy     uint               `json:"created_by"`
	IsAIAssisted  bool               `gorm:"column:is_ai_assisted;default:false" json:"is_ai_assisted"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	Subtasks      []Subtask          `gorm:"foreignKey:TaskID" json:"subtasks,omitempty"`
	StatusHistory []TaskStatusChange `gorm:"foreignKey:TaskID" json:"status_history,omitempty"`
}

type Subtask struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TaskID      uint   `gorm:"index" json:"task_id"`
	Title       string `json:"title"`
	IsCompleted bool   `gorm:"default:false" json:"is_completed"`
}

// TaskStatusChange is an append-only log entry; rows are never updated or
// deleted.
type TaskStatusChange struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TaskID     uint       `gorm:"index" json:"task_id"`
	FromStatus TaskStatus `json:"from_status"`
	ToStatus   TaskStatus `json:"to_status"`
	ChangedAt  time.Time  `gorm:"autoCreateTime" json:"changed_at"`
}

// Badge is an immutable catalog entry seeded at startup. SortOrder mirrors
// catalog declaration order and fixes the order earned badges are reported in.
type Badge struct {
	ID        string `gorm:"primaryKey;type:text" json:"id"`
	Name      string `json:"name"`
	Criteria  string `json:"criteria"`
	Icon      string `json:"icon"`
	Type      string `json:"type"`
	SortOrder int    `json:"sort_order"`
}

// UserBadge is append-only: once earned a badge is never removed.
type UserBadge struct {
	UserID   uint      `gorm:"primaryKey" json:"user_id"`
	BadgeID  string    `gorm:"primaryKey;type:text" json:"badge_id"`
	EarnedAt time.Time `gorm:"autoCreateTime" json:"earned_at"`
	Badge    Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}

type DailyCheckin struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index:idx_checkin_user_day,unique" json:"user_id"`
	// Day is the check-in calendar date in YYYY-MM-DD form.
	Day       string    `gorm:"index:idx_checkin_user_day,unique" json:"day"`
	Note      string    `json:"note"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
