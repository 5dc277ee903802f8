package services

import (
	"testing"
	"time"

	"github.com/Baltarist/Perscrum-sub000/models"
)

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return &parsed
}

func timePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return &parsed
}

func checkinsOn(days ...string) []models.DailyCheckin {
	checkins := make([]models.DailyCheckin, 0, len(days))
	for _, d := range days {
		checkins = append(checkins, models.DailyCheckin{Day: d})
	}
	return checkins
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestEvaluateBadgesEmptySnapshot(t *testing.T) {
	user := &models.User{ID: 1}
	got := EvaluateBadges(user, nil)
	if len(got) != 0 {
		t.Fatalf("expected no badges for empty snapshot, got %v", got)
	}
}

func TestGoalHunter(t *testing.T) {
	user := &models.User{ID: 1}
	projects := []models.Project{
		{Status: models.ProjectActive},
		{Status: models.ProjectCompleted},
	}
	got := EvaluateBadges(user, projects)
	if !contains(got, BadgeGoalHunter) {
		t.Fatalf("expected goal_hunter, got %v", got)
	}
}

func TestSprintWarriorNeedsThreeInOneProject(t *testing.T) {
	user := &models.User{ID: 1}

	// Two completed sprints in one project plus one in another must not count.
	split := []models.Project{
		{Status: models.ProjectActive, Sprints: []models.Sprint{
			{Status: models.SprintCompleted}, {Status: models.SprintCompleted},
		}},
		{Status: models.ProjectActive, Sprints: []models.Sprint{
			{Status: models.SprintCompleted},
		}},
	}
	if got := EvaluateBadges(user, split); contains(got, BadgeSprintWarrior) {
		t.Fatalf("sprint_warrior awarded across projects: %v", got)
	}

	single := []models.Project{
		{Status: models.ProjectActive, Sprints: []models.Sprint{
			{Status: models.SprintCompleted},
			{Status: models.SprintCompleted},
			{Status: models.SprintCompleted},
			{Status: models.SprintActive},
		}},
	}
	if got := EvaluateBadges(user, single); !contains(got, BadgeSprintWarrior) {
		t.Fatalf("expected sprint_warrior, got %v", got)
	}
}

func TestStreakMasterCountsDistinctDays(t *testing.T) {
	// Five distinct days, one of them checked in twice.
	user := &models.User{ID: 1, Checkins: checkinsOn(
		"2024-07-01", "2024-07-02", "2024-07-02", "2024-07-03", "2024-07-04", "2024-07-05",
	)}
	got := EvaluateBadges(user, nil)
	if !contains(got, BadgeStreakMaster) {
		t.Fatalf("expected streak_master, got %v", got)
	}

	user = &models.User{ID: 1, Checkins: checkinsOn(
		"2024-07-01", "2024-07-01", "2024-07-02", "2024-07-03", "2024-07-04",
	)}
	got = EvaluateBadges(user, nil)
	if contains(got, BadgeStreakMaster) {
		t.Fatalf("streak_master awarded for 4 distinct days: %v", got)
	}
}

func TestNightOwlAndEarlyBird(t *testing.T) {
	user := &models.User{ID: 1}
	projects := []models.Project{
		{Sprints: []models.Sprint{{Tasks: []models.Task{
			{Status: models.TaskDone, CompletedAt: timePtr(t, "2024-07-10 22:00")},
			{Status: models.TaskDone, CompletedAt: timePtr(t, "2024-07-11 06:59")},
		}}}},
	}
	got := EvaluateBadges(user, projects)
	if !contains(got, BadgeNightOwl) {
		t.Fatalf("expected night_owl for 22:00 completion, got %v", got)
	}
	if !contains(got, BadgeEarlyBird) {
		t.Fatalf("expected early_bird for 06:59 completion, got %v", got)
	}

	// Boundary hours that must not qualify.
	projects = []models.Project{
		{Sprints: []models.Sprint{{Tasks: []models.Task{
			{Status: models.TaskDone, CompletedAt: timePtr(t, "2024-07-10 21:59")},
			{Status: models.TaskDone, CompletedAt: timePtr(t, "2024-07-11 07:00")},
		}}}},
	}
	got = EvaluateBadges(user, projects)
	if contains(got, BadgeNightOwl) || contains(got, BadgeEarlyBird) {
		t.Fatalf("hour boundaries misjudged: %v", got)
	}
}

func TestNightOwlIgnoresUndoneTasks(t *testing.T) {
	user := &models.User{ID: 1}
	projects := []models.Project{
		{Sprints: []models.Sprint{{Tasks: []models.Task{
			{Status: models.TaskReview, CompletedAt: timePtr(t, "2024-07-10 23:00")},
		}}}},
	}
	if got := EvaluateBadges(user, projects); contains(got, BadgeNightOwl) {
		t.Fatalf("night_owl awarded for task not in done: %v", got)
	}
}

func TestPlanningGuruExactCoverage(t *testing.T) {
	user := &models.User{ID: 1}
	sprint := models.Sprint{
		Status:    models.SprintActive,
		StartDate: *datePtr(t, "2024-07-15"),
		EndDate:   *datePtr(t, "2024-07-17"),
		Tasks: []models.Task{
			{PlannedDate: datePtr(t, "2024-07-15")},
			{PlannedDate: datePtr(t, "2024-07-16")},
		},
	}
	projects := []models.Project{{Sprints: []models.Sprint{sprint}}}

	if got := EvaluateBadges(user, projects); contains(got, BadgePlanningGuru) {
		t.Fatalf("planning_guru awarded with a day uncovered: %v", got)
	}

	sprint.Tasks = append(sprint.Tasks, models.Task{PlannedDate: datePtr(t, "2024-07-17")})
	projects = []models.Project{{Sprints: []models.Sprint{sprint}}}

	if got := EvaluateBadges(user, projects); !contains(got, BadgePlanningGuru) {
		t.Fatalf("expected planning_guru with full coverage, got %v", got)
	}
}

func TestPlanningGuruSkipsInactiveAndUndatedSprints(t *testing.T) {
	user := &models.User{ID: 1}
	projects := []models.Project{
		{Sprints: []models.Sprint{
			{
				// Fully planned but not active.
				Status:    models.SprintPlanning,
				StartDate: *datePtr(t, "2024-07-15"),
				EndDate:   *datePtr(t, "2024-07-15"),
				Tasks:     []models.Task{{PlannedDate: datePtr(t, "2024-07-15")}},
			},
			{
				// Active but without dates.
				Status: models.SprintActive,
				Tasks:  []models.Task{{PlannedDate: datePtr(t, "2024-07-15")}},
			},
		}},
	}
	if got := EvaluateBadges(user, projects); contains(got, BadgePlanningGuru) {
		t.Fatalf("planning_guru awarded for ineligible sprints: %v", got)
	}
}

func TestEvaluateBadgesIdempotent(t *testing.T) {
	user := &models.User{ID: 1, Checkins: checkinsOn(
		"2024-07-01", "2024-07-02", "2024-07-03", "2024-07-04", "2024-07-05",
	)}
	projects := []models.Project{{Status: models.ProjectCompleted}}

	first := EvaluateBadges(user, projects)
	if len(first) == 0 {
		t.Fatalf("expected badges on first run")
	}

	for _, id := range first {
		user.Badges = append(user.Badges, models.UserBadge{UserID: user.ID, BadgeID: id})
	}

	second := EvaluateBadges(user, projects)
	if len(second) != 0 {
		t.Fatalf("second run on unchanged snapshot returned %v", second)
	}
}

func TestEvaluateBadgesCatalogOrder(t *testing.T) {
	// Earn streak_master, goal_hunter and night_owl in one evaluation; the
	// result must follow catalog order regardless of rule order.
	user := &models.User{ID: 1, Checkins: checkinsOn(
		"2024-07-01", "2024-07-02", "2024-07-03", "2024-07-04", "2024-07-05",
	)}
	projects := []models.Project{
		{Status: models.ProjectCompleted, Sprints: []models.Sprint{{Tasks: []models.Task{
			{Status: models.TaskDone, CompletedAt: timePtr(t, "2024-07-10 23:30")},
		}}}},
	}

	got := EvaluateBadges(user, projects)
	want := []string{BadgeGoalHunter, BadgeStreakMaster, BadgeNightOwl}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected catalog order %v, got %v", want, got)
		}
	}
}

func TestEvaluateBadgesDeterministic(t *testing.T) {
	user := &models.User{ID: 1, Checkins: checkinsOn(
		"2024-07-01", "2024-07-02", "2024-07-03", "2024-07-04", "2024-07-05",
	)}
	projects := []models.Project{{Status: models.ProjectCompleted}}

	first := EvaluateBadges(user, projects)
	second := EvaluateBadges(user, projects)
	if len(first) != len(second) {
		t.Fatalf("evaluations differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("evaluations differ: %v vs %v", first, second)
		}
	}
}
