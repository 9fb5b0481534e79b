package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestProject() *Project {
	return &Project{
		ID:     "proj_1",
		Number: 1,
		Title:  "Test Project",
		Fields: []Field{
			{ID: "field_status", Name: FieldStatus, Options: []Option{
				{ID: "opt_todo", Name: "Todo"},
				{ID: "opt_done", Name: "Done"},
			}},
			{ID: "field_priority", Name: FieldPriority, Options: []Option{
				{ID: "opt_high", Name: "High"},
			}},
		},
		Items: []Item{
			{
				ID: "item_1",
				FieldValues: []FieldValue{
					{Name: "Todo", OptionID: "opt_todo", Field: FieldRef{ID: "field_status", Name: FieldStatus}},
					{Name: "High", OptionID: "opt_high", Field: FieldRef{ID: "field_priority", Name: FieldPriority}},
				},
				Content: &Content{Kind: ContentTypeIssue, Title: "Fix bug", Number: 1},
			},
			{
				ID:      "item_2",
				Content: &Content{Kind: ContentTypeDraftIssue, ID: "DI_2", Title: "Draft", State: DraftState},
			},
		},
	}
}

func TestItem_StatusFirstMatchWins(t *testing.T) {
	item := Item{
		ID: "dup",
		FieldValues: []FieldValue{
			{},
			{Name: "Todo", Field: FieldRef{Name: FieldStatus}},
			{Name: "Done", Field: FieldRef{Name: FieldStatus}},
		},
	}

	assert.Equal(t, "Todo", item.Status())
	assert.Equal(t, "", item.Priority())

	fv, ok := item.FieldValue(FieldStatus)
	require.True(t, ok)
	assert.Equal(t, "Todo", fv.Name)
}

func TestProject_Lookups(t *testing.T) {
	p := createTestProject()

	t.Run("field by name", func(t *testing.T) {
		f := p.Field(FieldStatus)
		require.NotNil(t, f)
		assert.Equal(t, "field_status", f.ID)
		assert.Nil(t, p.Field("Iteration"))
	})

	t.Run("option by name", func(t *testing.T) {
		opt := p.Field(FieldStatus).Option("Done")
		require.NotNil(t, opt)
		assert.Equal(t, "opt_done", opt.ID)
		assert.Nil(t, p.Field(FieldStatus).Option("done"))
	})

	t.Run("nil receivers", func(t *testing.T) {
		var np *Project
		var nf *Field
		assert.Nil(t, np.Field(FieldStatus))
		assert.Nil(t, np.Item("item_1"))
		assert.Nil(t, nf.Option("Done"))
	})

	t.Run("item presence", func(t *testing.T) {
		assert.True(t, p.HasItem("item_2"))
		assert.False(t, p.HasItem("missing"))
	})
}

func TestProject_WithFieldValue(t *testing.T) {
	p := createTestProject()
	done := &FieldValue{Name: "Done", OptionID: "opt_done", Field: FieldRef{ID: "field_status", Name: FieldStatus}}

	next := p.WithFieldValue("item_1", FieldStatus, done)

	t.Run("returns a new project", func(t *testing.T) {
		require.NotSame(t, p, next)
		assert.Equal(t, "Done", next.Item("item_1").Status())
		assert.Equal(t, "High", next.Item("item_1").Priority())
	})

	t.Run("original untouched", func(t *testing.T) {
		assert.Equal(t, "Todo", p.Item("item_1").Status())
		assert.Len(t, p.Item("item_1").FieldValues, 2)
	})

	t.Run("replaced value is appended", func(t *testing.T) {
		values := next.Item("item_1").FieldValues
		require.Len(t, values, 2)
		assert.Equal(t, FieldPriority, values[0].Field.Name)
		assert.Equal(t, FieldStatus, values[1].Field.Name)
	})

	t.Run("nil value removes", func(t *testing.T) {
		cleared := p.WithFieldValue("item_1", FieldStatus, nil)
		assert.Equal(t, "", cleared.Item("item_1").Status())
	})

	t.Run("unknown item is a no-op", func(t *testing.T) {
		assert.Same(t, p, p.WithFieldValue("missing", FieldStatus, done))
	})
}

func TestProject_WithDraftContent(t *testing.T) {
	p := createTestProject()

	next := p.WithDraftContent("item_2", "Renamed", "Body")
	require.NotSame(t, p, next)
	assert.Equal(t, "Renamed", next.Item("item_2").Content.Title)
	assert.Equal(t, "Body", next.Item("item_2").Content.Body)
	assert.Equal(t, "Draft", p.Item("item_2").Content.Title)

	// Issues are not drafts and stay as they are
	assert.Same(t, p, p.WithDraftContent("item_1", "Renamed", ""))
}

func TestLookupByID(t *testing.T) {
	p := &Project{Fields: []Field{
		{ID: "F1", Name: FieldStatus, Options: []Option{{ID: "O1", Name: "Todo"}, {ID: "O2", Name: "Done"}}},
		{ID: "F2", Name: FieldPriority},
	}}

	assert.Equal(t, FieldPriority, p.FieldByID("F2").Name)
	assert.Nil(t, p.FieldByID("missing"))
	assert.Equal(t, "Done", p.FieldByID("F1").OptionByID("O2").Name)
	assert.Nil(t, p.FieldByID("F1").OptionByID("missing"))

	var nilProject *Project
	assert.Nil(t, nilProject.FieldByID("F1").OptionByID("O1"))
}
