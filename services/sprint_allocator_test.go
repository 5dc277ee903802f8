package services

import (
	"testing"
	"time"

	"github.com/Baltarist/Perscrum-sub000/models"
)

func anchorDate(t *testing.T) time.Time {
	t.Helper()
	anchor, err := time.Parse("2006-01-02", "2024-07-01")
	if err != nil {
		t.Fatalf("parse anchor: %v", err)
	}
	return anchor
}

func suggestion(title string, sprintNumber int) TaskSuggestion {
	return TaskSuggestion{Title: title, SuggestedSprintNumber: sprintNumber, StoryPoints: 3}
}

func TestAllocateSprintsEmptySuggestions(t *testing.T) {
	anchor := anchorDate(t)
	result := AllocateSprints(nil, 5, 2, anchor, 7)

	if result.TotalSprints != 1 {
		t.Fatalf("expected 1 sprint for empty suggestions, got %d", result.TotalSprints)
	}
	if len(result.Sprints) != 1 {
		t.Fatalf("expected 1 sprint entity, got %d", len(result.Sprints))
	}
	s := result.Sprints[0]
	if s.Status != models.SprintActive {
		t.Fatalf("expected active degenerate sprint, got %q", s.Status)
	}
	if len(s.Tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(s.Tasks))
	}
	wantEnd := anchor.AddDate(0, 0, 14)
	if !result.EstimatedCompletionDate.Equal(wantEnd) {
		t.Fatalf("estimated completion = %v, want %v", result.EstimatedCompletionDate, wantEnd)
	}
}

func TestAllocateSprintsGapsFilled(t *testing.T) {
	anchor := anchorDate(t)
	suggestions := []TaskSuggestion{
		suggestion("a", 1),
		suggestion("b", 3),
		suggestion("c", 5),
		suggestion("d", 3),
	}
	result := AllocateSprints(suggestions, 5, 1, anchor, 7)

	if result.TotalSprints != 5 {
		t.Fatalf("expected 5 sprints, got %d", result.TotalSprints)
	}

	for i, s := range result.Sprints {
		if s.SprintNumber != i+1 {
			t.Fatalf("sprint %d has number %d, want contiguous numbering", i, s.SprintNumber)
		}
		wantStart := anchor.AddDate(0, 0, i*7)
		wantEnd := wantStart.AddDate(0, 0, 6)
		if !s.StartDate.Equal(wantStart) || !s.EndDate.Equal(wantEnd) {
			t.Fatalf("sprint %d range %v..%v, want %v..%v",
				s.SprintNumber, s.StartDate, s.EndDate, wantStart, wantEnd)
		}
		if i > 0 {
			prev := result.Sprints[i-1]
			if !s.StartDate.Equal(prev.EndDate.AddDate(0, 0, 1)) {
				t.Fatalf("sprint %d does not start the day after sprint %d ends", s.SprintNumber, prev.SprintNumber)
			}
		}
	}

	// Sprints 2 and 4 exist but hold no tasks.
	if len(result.Sprints[1].Tasks) != 0 || len(result.Sprints[3].Tasks) != 0 {
		t.Fatalf("expected empty sprints 2 and 4")
	}
	if len(result.Sprints[2].Tasks) != 2 {
		t.Fatalf("expected 2 tasks in sprint 3, got %d", len(result.Sprints[2].Tasks))
	}
}

func TestAllocateSprintsPreservesSuggestionOrder(t *testing.T) {
	suggestions := []TaskSuggestion{
		suggestion("first", 2),
		suggestion("skip", 1),
		suggestion("second", 2),
		suggestion("third", 2),
	}
	result := AllocateSprints(suggestions, 2, 2, anchorDate(t), 1)

	tasks := result.Sprints[1].Tasks
	want := []string{"first", "second", "third"}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks in sprint 2, got %d", len(want), len(tasks))
	}
	for i, title := range want {
		if tasks[i].Title != title {
			t.Fatalf("task %d = %q, want %q (order must be preserved)", i, tasks[i].Title, title)
		}
	}
}

func TestAllocateSprintsClampsSprintNumbers(t *testing.T) {
	suggestions := []TaskSuggestion{
		suggestion("low", -2),
		suggestion("high", 99),
	}
	result := AllocateSprints(suggestions, 3, 1, anchorDate(t), 1)

	if result.TotalSprints != 3 {
		t.Fatalf("expected clamp to requested total 3, got %d", result.TotalSprints)
	}
	if len(result.Sprints[0].Tasks) != 1 || result.Sprints[0].Tasks[0].Title != "low" {
		t.Fatalf("underflowing sprint number not clamped to 1")
	}
	if len(result.Sprints[2].Tasks) != 1 || result.Sprints[2].Tasks[0].Title != "high" {
		t.Fatalf("overflowing sprint number not clamped to requested total")
	}
}

func TestAllocateSprintsStatusAndProvenance(t *testing.T) {
	suggestions := []TaskSuggestion{
		{Title: "setup", SuggestedSprintNumber: 1, Subtasks: []string{"repo", "ci"}},
		suggestion("deliver", 2),
	}
	result := AllocateSprints(suggestions, 2, 2, anchorDate(t), 42)

	if result.Sprints[0].Status != models.SprintActive {
		t.Fatalf("sprint 1 must start active, got %q", result.Sprints[0].Status)
	}
	if result.Sprints[1].Status != models.SprintPlanning {
		t.Fatalf("sprint 2 must start planning, got %q", result.Sprints[1].Status)
	}

	task := result.Sprints[0].Tasks[0]
	if task.CreatedBy != 42 || !task.IsAIAssisted {
		t.Fatalf("task provenance not set: createdBy=%d isAiAssisted=%v", task.CreatedBy, task.IsAIAssisted)
	}
	if task.Status != models.TaskBacklog {
		t.Fatalf("new task status = %q, want backlog", task.Status)
	}
	if len(task.Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(task.Subtasks))
	}
	if task.CompletedAt != nil || len(task.StatusHistory) != 0 {
		t.Fatalf("new task must have empty completion and history scaffolding")
	}
}

func TestValidSuggestionsFiltersMalformed(t *testing.T) {
	suggestions := []TaskSuggestion{
		{Title: "", SuggestedSprintNumber: 1},
		{Title: "ok", SuggestedSprintNumber: 0},
		{Title: "kept", SuggestedSprintNumber: 2},
	}
	valid := ValidSuggestions(suggestions)
	if len(valid) != 1 || valid[0].Title != "kept" {
		t.Fatalf("expected only well-formed suggestion to survive, got %v", valid)
	}
}
