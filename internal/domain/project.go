package domain

// Field returns the first field named name, or nil.
func (p *Project) Field(name string) *Field {
	if p == nil {
		return nil
	}
	for i := range p.Fields {
		if p.Fields[i].Name == name {
			return &p.Fields[i]
		}
	}
	return nil
}

// FieldByID returns the field with the given ID, or nil.
func (p *Project) FieldByID(id string) *Field {
	if p == nil {
		return nil
	}
	for i := range p.Fields {
		if p.Fields[i].ID == id {
			return &p.Fields[i]
		}
	}
	return nil
}

// Item returns the first item with the given ID, or nil.
func (p *Project) Item(id string) *Item {
	if p == nil {
		return nil
	}
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// HasItem reports whether the project contains an item with the given ID.
func (p *Project) HasItem(id string) bool {
	return p.Item(id) != nil
}

// Option returns the first option with the given name, or nil.
func (f *Field) Option(name string) *Option {
	if f == nil {
		return nil
	}
	for i := range f.Options {
		if f.Options[i].Name == name {
			return &f.Options[i]
		}
	}
	return nil
}

// OptionByID returns the option with the given ID, or nil.
func (f *Field) OptionByID(id string) *Option {
	if f == nil {
		return nil
	}
	for i := range f.Options {
		if f.Options[i].ID == id {
			return &f.Options[i]
		}
	}
	return nil
}

// FieldValue returns the first value (in list order) whose field is named name.
// Later duplicates are ignored.
func (it *Item) FieldValue(name string) (FieldValue, bool) {
	for _, fv := range it.FieldValues {
		if fv.Field.Name == name {
			return fv, true
		}
	}
	return FieldValue{}, false
}

// Status returns the item's Status option name, or "" if unset.
func (it *Item) Status() string {
	fv, _ := it.FieldValue(FieldStatus)
	return fv.Name
}

// Priority returns the item's Priority option name, or "" if unset.
func (it *Item) Priority() string {
	fv, _ := it.FieldValue(FieldPriority)
	return fv.Name
}

// Title returns the content title, or "" for items without content.
func (it *Item) Title() string {
	if it.Content == nil {
		return ""
	}
	return it.Content.Title
}

// WithFieldValue returns a copy of p in which item itemID has every value for
// fieldName removed and fv appended. A nil fv only removes.
// The receiver is never modified. Returns p unchanged (same pointer) if the item is absent.
func (p *Project) WithFieldValue(itemID, fieldName string, fv *FieldValue) *Project {
	idx := p.itemIndex(itemID)
	if idx < 0 {
		return p
	}

	old := p.Items[idx]
	values := make([]FieldValue, 0, len(old.FieldValues)+1)
	for _, v := range old.FieldValues {
		if v.Field.Name != fieldName {
			values = append(values, v)
		}
	}
	if fv != nil {
		values = append(values, *fv)
	}

	return p.withItem(idx, Item{ID: old.ID, FieldValues: values, Content: old.Content})
}

// WithDraftContent returns a copy of p in which the draft content of item itemID has the
// given title and body. Items without draft content are left as they are.
func (p *Project) WithDraftContent(itemID, title, body string) *Project {
	idx := p.itemIndex(itemID)
	if idx < 0 {
		return p
	}

	old := p.Items[idx]
	if old.Content == nil || old.Content.Kind != ContentTypeDraftIssue {
		return p
	}
	content := *old.Content
	content.Title = title
	content.Body = body

	return p.withItem(idx, Item{ID: old.ID, FieldValues: old.FieldValues, Content: &content})
}

func (p *Project) itemIndex(itemID string) int {
	if p == nil {
		return -1
	}
	for i := range p.Items {
		if p.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// withItem allocates a new item list with position idx replaced and wraps it in a new Project.
func (p *Project) withItem(idx int, item Item) *Project {
	items := make([]Item, len(p.Items))
	copy(items, p.Items)
	items[idx] = item

	return &Project{
		ID:     p.ID,
		Number: p.Number,
		Title:  p.Title,
		URL:    p.URL,
		Fields: p.Fields,
		Items:  items,
	}
}
