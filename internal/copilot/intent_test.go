package copilot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		prompt string
		want   Intent
	}{
		{"Create a high priority bug for login", IntentCreateBug},
		{"Add a new feature for dark mode", IntentCreateFeature},
		{"new task: write release notes", IntentCreateTask},
		{"create something and show me everything", IntentCreateTask},
		{"Move the latest task to Done", IntentMoveToDone},
		{"mark complete and update", IntentMoveToDone},
		{"Change the recent task to In Progress", IntentMoveToInProgress},
		{"update the thing I'm working on", IntentMoveToInProgress},
		{"move it somewhere", IntentUpdateStatus},
		{"Show me all high priority tasks", IntentShowHighPriority},
		{"high priority tasks, show them", IntentShowHighPriority},
		{"find urgent stuff", IntentShowHighPriority},
		{"List tasks in progress", IntentShowInProgress},
		{"show completed tasks", IntentShowCompleted},
		{"show everything", IntentShowAll},
		{"set priority to high", IntentSetHighPriority},
		{"lower the priority", IntentSetLowPriority},
		{"priority", IntentHelp},
		{"hello", IntentHelp},
		{"", IntentHelp},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.prompt), "got %s", Classify(tt.prompt))
		})
	}
}

// TestExtractTitle verifies command vocabulary is stripped on word boundaries.
func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		kind   TaskKind
		want   string
	}{
		{"bug with priority", "Create a high priority bug for login", KindBug, "[BUG] login"},
		{"bug report", "Add a bug report for login issues", KindBug, "[BUG] login issues"},
		{"feature", "Create a high priority feature for dark mode", KindFeature, "[FEATURE] dark mode"},
		{"general", "Create a new task for user authentication", KindGeneral, "user authentication"},
		{"words inside the title survive", "add newsletter signup to the footer", KindGeneral, "newsletter signup to the footer"},
		{"urgent anywhere", "create task fix deploy urgent", KindGeneral, "fix deploy"},
		{"existing prefix kept", "create bug:crash on start", KindBug, "bug:crash on start"},
		{"empty general", "Create a new task", KindGeneral, "New task"},
		{"empty bug", "Create a bug report task", KindBug, "[BUG] New bug report"},
		{"empty feature", "new feature", KindFeature, "[FEATURE] New feature request"},
		{"too short", "create task ab", KindGeneral, "New task"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.prompt, tt.kind))
		})
	}
}

func TestIntent_Kind(t *testing.T) {
	assert.Equal(t, KindBug, IntentCreateBug.Kind())
	assert.Equal(t, KindFeature, IntentCreateFeature.Kind())
	assert.Equal(t, KindGeneral, IntentCreateTask.Kind())
	assert.Equal(t, "show-all", IntentShowAll.String())
}
