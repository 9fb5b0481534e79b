package copilot

import (
	"fmt"
	"strings"

	"github.com/h0rv/kanbanbar/internal/domain"
)

// ListFilter selects items for a listing.
type ListFilter int

const (
	ListAll ListFilter = iota
	ListHighPriority
	ListInProgress
	ListCompleted
)

func (f ListFilter) title() string {
	switch f {
	case ListHighPriority:
		return "High priority tasks"
	case ListInProgress:
		return "Tasks in progress"
	case ListCompleted:
		return "Completed tasks"
	default:
		return "All tasks"
	}
}

func (f ListFilter) keeps(it domain.Item) bool {
	status := strings.ToLower(it.Status())
	switch f {
	case ListHighPriority:
		return strings.Contains(strings.ToLower(it.Priority()), "high")
	case ListInProgress:
		return strings.Contains(status, "progress")
	case ListCompleted:
		return strings.Contains(status, "done") || strings.Contains(status, "complete")
	default:
		return true
	}
}

// FormatListing renders the items matching filter as a bulleted list.
func FormatListing(items []domain.Item, filter ListFilter) string {
	var matched []domain.Item
	for _, it := range items {
		if filter.keeps(it) {
			matched = append(matched, it)
		}
	}
	if len(matched) == 0 {
		return "📭 No tasks found matching your criteria."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s (%d):\n", filter.title(), len(matched))
	for _, it := range matched {
		title := "Draft Task"
		number := ""
		if it.Content != nil {
			title = it.Content.Title
			if it.Content.Number > 0 {
				number = fmt.Sprintf(" #%d", it.Content.Number)
			}
		}
		status := it.Status()
		if status == "" {
			status = "No Status"
		}
		priority := it.Priority()
		if priority == "" {
			priority = "No Priority"
		}

		fmt.Fprintf(&b, "\n• %s%s\n  Status: %s | Priority: %s\n", title, number, status, priority)
	}
	return b.String()
}

const updateGuidance = `🤔 To update a task status, please be more specific. You can say:

• "Move the latest task to Done"
• "Move the latest task to In Progress"

Or move the card on the board directly.`

const priorityComingSoon = `🚧 Priority updates are coming soon!

For now, you can:
• Create new tasks with priority (e.g., "Create a high priority bug task")
• Move tasks between status columns
• View tasks by priority level`

// Help lists what the copilot understands. It is markdown.
const Help = `# Task Copilot Help

I can help you with these commands:

**📝 Creating Tasks:**
- "Create a new task for user authentication"
- "Add a bug report for login issues"
- "Create a high priority feature for dark mode"

**🔄 Moving Tasks:**
- "Move the latest task to Done"
- "Update the recent task to In Progress"

**📋 Viewing Tasks:**
- "Show all high priority tasks"
- "List tasks in progress"
- "Show completed tasks"

**💡 Tips:**
- Be specific about task titles and priorities
- Mention "high priority" or "urgent" when creating important tasks
`
