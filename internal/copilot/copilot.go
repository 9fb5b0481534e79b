package copilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/h0rv/kanbanbar/internal/engine"
)

// Message is one entry of the conversation.
type Message struct {
	ID        string
	Content   string
	FromUser  bool
	Timestamp time.Time
}

// Welcome is shown before the first prompt.
const Welcome = "👋 Hi! I'm your task copilot. I can help you:\n\n" +
	"• Create new tasks\n" +
	"• Move tasks between columns\n" +
	"• Find and organize tasks\n\n" +
	"Just tell me what you'd like to do!"

// Copilot executes prompts against the engine and keeps the conversation.
type Copilot struct {
	engine *engine.Engine
	log    *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	messages []Message
}

// New creates a Copilot acting through e.
func New(e *engine.Engine, log *slog.Logger) *Copilot {
	if log == nil {
		log = slog.Default()
	}
	return &Copilot{engine: e, log: log, now: time.Now}
}

// Messages returns the conversation so far, oldest first.
func (c *Copilot) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Process classifies prompt, executes it and returns the reply, which is also appended to
// the conversation. The error is non-nil when an action was attempted and failed; the reply
// then describes the failure.
func (c *Copilot) Process(ctx context.Context, prompt string) (Message, error) {
	c.append(prompt, true)

	intent := Classify(prompt)
	c.log.Debug("classified prompt", "intent", intent.String())

	reply, err := c.execute(ctx, intent, prompt)
	return c.append(reply, false), err
}

func (c *Copilot) append(content string, fromUser bool) Message {
	m := Message{ID: uuid.NewString(), Content: content, FromUser: fromUser, Timestamp: c.now()}
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
	return m
}

func (c *Copilot) execute(ctx context.Context, intent Intent, prompt string) (string, error) {
	switch intent {
	case IntentCreateTask, IntentCreateBug, IntentCreateFeature:
		return c.createTask(ctx, prompt, intent.Kind())
	case IntentMoveToDone:
		return c.moveRecent(ctx, "Done")
	case IntentMoveToInProgress:
		return c.moveRecent(ctx, "In progress")
	case IntentUpdateStatus:
		return updateGuidance, nil
	case IntentShowHighPriority:
		return c.list(ListHighPriority), nil
	case IntentShowInProgress:
		return c.list(ListInProgress), nil
	case IntentShowCompleted:
		return c.list(ListCompleted), nil
	case IntentShowAll:
		return c.list(ListAll), nil
	case IntentSetHighPriority, IntentSetLowPriority:
		return priorityComingSoon, nil
	default:
		return Help, nil
	}
}

// project returns the board's project, or the first project in the store.
func (c *Copilot) project() *domain.Project {
	if p := c.engine.Board().Project(); p != nil {
		return p
	}
	projects := c.engine.Store().CurrentProjects()
	if len(projects) == 0 {
		return nil
	}
	return &projects[0]
}

func (c *Copilot) createTask(ctx context.Context, prompt string, kind TaskKind) (string, error) {
	project := c.project()
	if project == nil {
		return "❌ No projects available. Please connect to a project first.", nil
	}

	title := ExtractTitle(prompt, kind)

	var status string
	if field := project.Field(domain.FieldStatus); field != nil {
		for _, opt := range field.Options {
			if opt.Name == "Backlog" || opt.Name == "Todo" {
				status = opt.Name
				break
			}
		}
	}

	var priority string
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "high priority") || strings.Contains(lower, "urgent"):
		priority = optionContaining(project.Field(domain.FieldPriority), "high")
	case strings.Contains(lower, "low priority"):
		priority = optionContaining(project.Field(domain.FieldPriority), "low")
	}

	_, err := c.engine.CreateTask(ctx, engine.TaskInput{
		ProjectID: project.ID,
		Title:     title,
		Status:    status,
		Priority:  priority,
	})

	var partial *engine.PartialCreateError
	switch {
	case errors.As(err, &partial):
		return fmt.Sprintf("⚠️ Created task \"%s\" but could not set its %s. You can set it on the board.\n\n🎯 Project: %s",
			title, partial.Step, project.Title), err
	case err != nil:
		c.log.Error("copilot create failed", "error", err)
		return "❌ Failed to create task. Please check your connection and try again.", err
	}

	statusText := status
	if statusText == "" {
		statusText = "default status"
	}
	priorityText := ""
	if priority != "" {
		priorityText = " with " + strings.ToLower(priority) + " priority"
	}
	return fmt.Sprintf("✅ Successfully created task: \"%s\"\n\n📋 Status: %s%s\n🎯 Project: %s",
		title, statusText, priorityText, project.Title), nil
}

// optionContaining returns the first option whose lowercased name contains sub.
func optionContaining(f *domain.Field, sub string) string {
	if f == nil {
		return ""
	}
	for _, opt := range f.Options {
		if strings.Contains(strings.ToLower(opt.Name), sub) {
			return opt.Name
		}
	}
	return ""
}

func (c *Copilot) moveRecent(ctx context.Context, target string) (string, error) {
	project := c.project()
	if project == nil {
		return "❌ No projects available.", nil
	}

	// Option names vary in case between projects ("In progress", "In Progress").
	if opt := optionFold(project.Field(domain.FieldStatus), target); opt != nil {
		target = opt.Name
	}

	item := MostRecent(project.Items, target)
	if item == nil {
		return fmt.Sprintf("❌ No tasks found that can be moved to %s.", target), nil
	}

	if err := c.engine.MoveCard(ctx, item.ID, target); err != nil {
		c.log.Error("copilot move failed", "item", item.ID, "error", err)
		return "❌ Failed to move task. Please try again.", err
	}

	return fmt.Sprintf("✅ Successfully moved task to %s:\n\n📋 %s\n🎯 Project: %s", target, item.Title(), project.Title), nil
}

func optionFold(f *domain.Field, name string) *domain.Option {
	if f == nil {
		return nil
	}
	for i := range f.Options {
		if strings.EqualFold(f.Options[i].Name, name) {
			return &f.Options[i]
		}
	}
	return nil
}

// MostRecent returns the most recently created item with content that is not already in
// status. Items are ordered by content creation time, newest first; when either timestamp
// is missing the item IDs are compared instead.
func MostRecent(items []domain.Item, status string) *domain.Item {
	candidates := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if it.Content != nil && !strings.EqualFold(it.Status(), status) {
			candidates = append(candidates, it)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Content.CreatedAt != "" && b.Content.CreatedAt != "" {
			return a.Content.CreatedAt > b.Content.CreatedAt
		}
		return a.ID > b.ID
	})
	return &candidates[0]
}

func (c *Copilot) list(filter ListFilter) string {
	project := c.project()
	if project == nil {
		return "❌ No projects available."
	}
	return FormatListing(project.Items, filter)
}
