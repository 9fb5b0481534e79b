package copilot

import (
	"context"
	"errors"
	"testing"

	"github.com/h0rv/kanbanbar/internal/board"
	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/h0rv/kanbanbar/internal/engine"
	"github.com/h0rv/kanbanbar/internal/logging"
	"github.com/h0rv/kanbanbar/internal/store"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldCall struct {
	ItemID, FieldID, OptionID string
}

type fakeClient struct {
	fieldCalls []fieldCall
	titles     []string
	fieldErr   error
	failAt     int
}

func (f *fakeClient) UpdateItemField(ctx context.Context, token, projectID, itemID, fieldID, optionID string) error {
	f.fieldCalls = append(f.fieldCalls, fieldCall{itemID, fieldID, optionID})
	if f.fieldErr != nil && (f.failAt == 0 || f.failAt == len(f.fieldCalls)) {
		return f.fieldErr
	}
	return nil
}

func (f *fakeClient) AddDraftIssue(ctx context.Context, token, projectID, title, body string) (string, error) {
	f.titles = append(f.titles, title)
	return "item_new", nil
}

func (f *fakeClient) UpdateDraftIssue(ctx context.Context, token, draftID, title, body string) error {
	return nil
}

type fakeFetcher struct {
	projects []domain.Project
}

func (f *fakeFetcher) FetchProjects(ctx context.Context, token string) ([]domain.Project, error) {
	return f.projects, nil
}

func (f *fakeFetcher) FetchProjectSummaries(ctx context.Context, token string) ([]domain.Project, error) {
	return nil, errors.New("no summaries")
}

func value(fieldID, fieldName, optID, name string) domain.FieldValue {
	return domain.FieldValue{Name: name, OptionID: optID, Field: domain.FieldRef{ID: fieldID, Name: fieldName}}
}

func testItems() []domain.Item {
	return []domain.Item{
		{
			ID: "item_1",
			FieldValues: []domain.FieldValue{
				value("field_status", domain.FieldStatus, "opt_progress", "In Progress"),
				value("field_priority", domain.FieldPriority, "opt_high", "High"),
			},
			Content: &domain.Content{Kind: domain.ContentTypeIssue, Title: "Crash on save", Number: 7, CreatedAt: "2024-01-02T00:00:00Z"},
		},
		{
			ID:          "item_2",
			FieldValues: []domain.FieldValue{value("field_status", domain.FieldStatus, "opt_done", "Done")},
			Content:     &domain.Content{Kind: domain.ContentTypeDraftIssue, Title: "Write docs", CreatedAt: "2024-01-01T00:00:00Z"},
		},
		{
			ID: "item_3",
			FieldValues: []domain.FieldValue{
				value("field_status", domain.FieldStatus, "opt_todo", "Todo"),
				value("field_priority", domain.FieldPriority, "opt_low", "Low"),
			},
			Content: &domain.Content{Kind: domain.ContentTypePullRequest, Title: "Refactor client", Number: 12, CreatedAt: "2024-01-03T00:00:00Z"},
		},
		{ID: "item_4"},
	}
}

func testProject() domain.Project {
	return domain.Project{
		ID:    "proj_1",
		Title: "Test Project",
		Fields: []domain.Field{
			{ID: "field_status", Name: domain.FieldStatus, Options: []domain.Option{
				{ID: "opt_todo", Name: "Todo"},
				{ID: "opt_progress", Name: "In Progress"},
				{ID: "opt_done", Name: "Done"},
			}},
			{ID: "field_priority", Name: domain.FieldPriority, Options: []domain.Option{
				{ID: "opt_high", Name: "High"},
				{ID: "opt_low", Name: "Low"},
			}},
		},
		Items: testItems(),
	}
}

func newCopilot(t *testing.T, projects ...domain.Project) (*Copilot, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	st := store.New(&fakeFetcher{projects: projects}, logging.Discard())
	_, err := st.FetchAll(context.Background(), "tok")
	require.NoError(t, err)

	b := board.New()
	if len(projects) > 0 {
		b.SetProject(st.ProjectByID(projects[0].ID))
	}
	e := engine.New(client, st, b, engine.TokenFunc(func() (string, error) { return "tok", nil }), logging.Discard())
	return New(e, logging.Discard()), client
}

func TestFormatListing(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	items := testItems()

	for name, filter := range map[string]ListFilter{
		"listing_all":           ListAll,
		"listing_high_priority": ListHighPriority,
		"listing_in_progress":   ListInProgress,
		"listing_completed":     ListCompleted,
	} {
		t.Run(name, func(t *testing.T) {
			g.Assert(t, name, []byte(FormatListing(items, filter)))
		})
	}
}

func TestFormatListing_Empty(t *testing.T) {
	assert.Equal(t, "📭 No tasks found matching your criteria.", FormatListing(nil, ListAll))
	assert.Equal(t, "📭 No tasks found matching your criteria.", FormatListing(testItems()[1:2], ListHighPriority))
}

func TestMostRecent(t *testing.T) {
	items := testItems()

	got := MostRecent(items, "Done")
	require.NotNil(t, got)
	assert.Equal(t, "item_3", got.ID)

	got = MostRecent(items, "todo")
	require.NotNil(t, got)
	assert.Equal(t, "item_1", got.ID, "status comparison ignores case")

	assert.Nil(t, MostRecent(items[3:], "Done"), "items without content are never moved")

	// Without timestamps the item IDs decide.
	noTimes := []domain.Item{
		{ID: "PVTI_a", Content: &domain.Content{Title: "a"}},
		{ID: "PVTI_c", Content: &domain.Content{Title: "c"}},
		{ID: "PVTI_b", Content: &domain.Content{Title: "b"}},
	}
	got = MostRecent(noTimes, "Done")
	require.NotNil(t, got)
	assert.Equal(t, "PVTI_c", got.ID)
}

func TestProcess_CreateBugWithPriority(t *testing.T) {
	c, client := newCopilot(t, testProject())

	msg, err := c.Process(context.Background(), "Create a high priority bug for login")
	require.NoError(t, err)

	assert.Equal(t, []string{"[BUG] login"}, client.titles)
	assert.Equal(t, []fieldCall{
		{"item_new", "field_status", "opt_todo"},
		{"item_new", "field_priority", "opt_high"},
	}, client.fieldCalls)
	assert.Equal(t, "✅ Successfully created task: \"[BUG] login\"\n\n📋 Status: Todo with high priority\n🎯 Project: Test Project", msg.Content)
	assert.False(t, msg.FromUser)
}

func TestProcess_CreatePartial(t *testing.T) {
	c, client := newCopilot(t, testProject())
	client.fieldErr = errors.New("boom")
	client.failAt = 2

	msg, err := c.Process(context.Background(), "add urgent task fix deploy")

	var partial *engine.PartialCreateError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, engine.StepPriority, partial.Step)
	assert.Contains(t, msg.Content, "⚠️ Created task \"fix deploy\" but could not set its priority")
}

func TestProcess_Move(t *testing.T) {
	tests := []struct {
		prompt string
		want   fieldCall
		reply  string
	}{
		{
			prompt: "Move the latest task to Done",
			want:   fieldCall{"item_3", "field_status", "opt_done"},
			reply:  "✅ Successfully moved task to Done:\n\n📋 Refactor client\n🎯 Project: Test Project",
		},
		{
			prompt: "update the recent task to in progress",
			want:   fieldCall{"item_3", "field_status", "opt_progress"},
			reply:  "✅ Successfully moved task to In Progress:\n\n📋 Refactor client\n🎯 Project: Test Project",
		},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			c, client := newCopilot(t, testProject())

			msg, err := c.Process(context.Background(), tt.prompt)
			require.NoError(t, err)
			assert.Equal(t, []fieldCall{tt.want}, client.fieldCalls)
			assert.Equal(t, tt.reply, msg.Content)
		})
	}
}

func TestProcess_MoveFailure(t *testing.T) {
	c, client := newCopilot(t, testProject())
	client.fieldErr = errors.New("boom")

	msg, err := c.Process(context.Background(), "Move the latest task to Done")
	assert.Error(t, err)
	assert.Equal(t, "❌ Failed to move task. Please try again.", msg.Content)
}

func TestProcess_NoProjects(t *testing.T) {
	c, client := newCopilot(t)

	msg, err := c.Process(context.Background(), "create task write docs")
	require.NoError(t, err)
	assert.Equal(t, "❌ No projects available. Please connect to a project first.", msg.Content)
	assert.Empty(t, client.titles)

	msg, err = c.Process(context.Background(), "show everything")
	require.NoError(t, err)
	assert.Equal(t, "❌ No projects available.", msg.Content)
}

func TestProcess_Replies(t *testing.T) {
	c, _ := newCopilot(t, testProject())
	ctx := context.Background()

	for prompt, want := range map[string]string{
		"hello":                    Help,
		"move it somewhere":        updateGuidance,
		"set priority to high":     priorityComingSoon,
		"show completed tasks":     FormatListing(testItems(), ListCompleted),
		"show all high priority":   FormatListing(testItems(), ListHighPriority),
		"list everything on board": FormatListing(testItems(), ListAll),
	} {
		msg, err := c.Process(ctx, prompt)
		require.NoError(t, err)
		assert.Equal(t, want, msg.Content, prompt)
	}
}

func TestProcess_History(t *testing.T) {
	c, _ := newCopilot(t, testProject())

	_, err := c.Process(context.Background(), "hello")
	require.NoError(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].FromUser)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.False(t, msgs[1].FromUser)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
}
