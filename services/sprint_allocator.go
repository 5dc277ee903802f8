package services

import (
	"time"

	"github.com/Baltarist/Perscrum-sub000/models"
)

// TaskSuggestion is the shape returned by the AI provider. JSON names match
// the existing suggestion contract.
type TaskSuggestion struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	StoryPoints           int      `json:"storyPoints"`
	SuggestedSprintNumber int      `json:"suggestedSprintNumber"`
	Subtasks              []string `json:"subtasks,omitempty"`
}

// AllocationResult holds the sprints produced for a new project and the date
// the last sprint rolls off.
type AllocationResult struct {
	Sprints                 []models.Sprint
	TotalSprints            int
	EstimatedCompletionDate time.Time
}

// AllocateSprints partitions AI task suggestions into contiguous sprint
// buckets with sequential date ranges.
//
// Suggested sprint numbers are re-clamped to [1, requestedTotalSprints]
// defensively; the final sprint count is max(1, highest clamped number),
// which trusts what the AI actually produced over the original request.
// Every slot 1..N is materialized even when its bucket is empty, because the
// date sequence must not have gaps. Task order within a bucket follows the
// suggestion order. Sprint 1 starts active, the rest start in planning. Date
// ranges are inclusive on both ends: each sprint covers durationWeeks*7 days
// starting right after the previous one, with sprint 1 anchored at anchor.
//
// An empty suggestion list yields a single active sprint with no tasks.
func AllocateSprints(suggestions []TaskSuggestion, requestedTotalSprints, durationWeeks int, anchor time.Time, userID uint) AllocationResult {
	if requestedTotalSprints < 1 {
		requestedTotalSprints = 1
	}
	durationDays := durationWeeks * 7

	clamped := make([]int, len(suggestions))
	finalNumSprints := 1
	for i, s := range suggestions {
		n := s.SuggestedSprintNumber
		if n < 1 {
			n = 1
		}
		if n > requestedTotalSprints {
			n = requestedTotalSprints
		}
		clamped[i] = n
		if n > finalNumSprints {
			finalNumSprints = n
		}
	}

	sprints := make([]models.Sprint, 0, finalNumSprints)
	cursor := anchor
	for num := 1; num <= finalNumSprints; num++ {
		sprint := models.Sprint{
			SprintNumber: num,
			Status:       models.SprintPlanning,
			StartDate:    cursor,
			EndDate:      cursor.AddDate(0, 0, durationDays-1),
		}
		if num == 1 {
			sprint.Status = models.SprintActive
		}
		for i, s := range suggestions {
			if clamped[i] != num {
				continue
			}
			sprint.Tasks = append(sprint.Tasks, materializeTask(s, userID))
		}
		sprints = append(sprints, sprint)
		// Advance even past empty sprints so date ranges stay contiguous.
		cursor = cursor.AddDate(0, 0, durationDays)
	}

	return AllocationResult{
		Sprints:                 sprints,
		TotalSprints:            finalNumSprints,
		EstimatedCompletionDate: cursor,
	}
}

func materializeTask(s TaskSuggestion, userID uint) models.Task {
	task := models.Task{
		Title:        s.Title,
		Description:  s.Description,
		StoryPoints:  s.StoryPoints,
		Status:       models.TaskBacklog,
		CreatedBy:    userID,
		IsAIAssisted: true,
	}
	for _, title := range s.Subtasks {
		task.Subtasks = append(task.Subtasks, models.Subtask{Title: title})
	}
	return task
}

// ValidSuggestions filters out entries the allocator cannot use: a suggestion
// needs a title and a positive sprint number. AI provider failures upstream
// surface as zero suggestions, never as errors reaching the allocator.
func ValidSuggestions(suggestions []TaskSuggestion) []TaskSuggestion {
	valid := make([]TaskSuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Title == "" || s.SuggestedSprintNumber < 1 {
			continue
		}
		valid = append(valid, s)
	}
	return valid
}
