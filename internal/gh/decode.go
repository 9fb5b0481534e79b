package gh

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/h0rv/kanbanbar/internal/domain"
)

// Fallback name for fields the API returned without a name.
const unknownFieldName = "Unknown Field"

// DecodeProjects maps the "data" payload of the full projects query onto domain projects.
//
// Decoding degrades one unit and preserves the rest: null or malformed fields, items,
// field values and options are dropped (or patched, for fields missing their id/name),
// unrecognized item content becomes nil, and a project that cannot be decoded is skipped.
// The only error is a payload that is not a JSON object.
func DecodeProjects(data json.RawMessage) ([]domain.Project, error) {
	nodes, err := viewerProjectNodes(data)
	if err != nil {
		return nil, err
	}

	projects := make([]domain.Project, 0, len(nodes))
	for _, raw := range nodes {
		if p, ok := decodeProject(raw); ok {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// DecodeProjectSummaries decodes the reduced fallback query: id, number, title and url only.
func DecodeProjectSummaries(data json.RawMessage) ([]domain.Project, error) {
	nodes, err := viewerProjectNodes(data)
	if err != nil {
		return nil, err
	}

	projects := make([]domain.Project, 0, len(nodes))
	for _, raw := range nodes {
		o, ok := asObject(raw)
		if !ok {
			continue
		}
		id, ok := o.str("id")
		if !ok {
			continue
		}
		number, _ := o.int("number")
		title, _ := o.str("title")
		u, _ := o.str("url")
		projects = append(projects, domain.Project{
			ID:     id,
			Number: number,
			Title:  title,
			URL:    u,
			Fields: []domain.Field{},
			Items:  []domain.Item{},
		})
	}
	return projects, nil
}

// DecodeFields decodes a field connection's node list.
func DecodeFields(nodes []json.RawMessage) []domain.Field {
	fields := make([]domain.Field, 0, len(nodes))
	for _, raw := range nodes {
		if f, ok := decodeField(raw); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// DecodeItems decodes an item connection's node list.
func DecodeItems(nodes []json.RawMessage) []domain.Item {
	items := make([]domain.Item, 0, len(nodes))
	for _, raw := range nodes {
		if it, ok := decodeItem(raw); ok {
			items = append(items, it)
		}
	}
	return items
}

// DecodeContent decodes an item's content union. It tries Issue, then PullRequest, then
// DraftIssue and returns the first structurally valid match, or nil.
func DecodeContent(raw json.RawMessage) *domain.Content {
	o, ok := asObject(raw)
	if !ok {
		return nil
	}
	for _, variant := range []func(object) (*domain.Content, bool){decodeIssue, decodePullRequest, decodeDraftIssue} {
		if c, ok := variant(o); ok {
			return c
		}
	}
	return nil
}

func viewerProjectNodes(data json.RawMessage) ([]json.RawMessage, error) {
	root, ok := asObject(data)
	if !ok {
		return nil, fmt.Errorf("%w: data is not an object", ErrInvalidResponse)
	}
	viewer, ok := root.obj("viewer")
	if !ok {
		return nil, nil
	}
	return viewer.nodes("projectsV2"), nil
}

func decodeProject(raw json.RawMessage) (domain.Project, bool) {
	o, ok := asObject(raw)
	if !ok {
		return domain.Project{}, false
	}
	id, ok := o.str("id")
	if !ok {
		return domain.Project{}, false
	}

	number, _ := o.int("number")
	title, _ := o.str("title")
	u, _ := o.str("url")

	return domain.Project{
		ID:     id,
		Number: number,
		Title:  title,
		URL:    u,
		Fields: DecodeFields(o.nodes("fields")),
		Items:  DecodeItems(o.nodes("items")),
	}, true
}

func decodeField(raw json.RawMessage) (domain.Field, bool) {
	o, ok := asObject(raw)
	if !ok {
		return domain.Field{}, false
	}

	id, ok := o.str("id")
	if !ok {
		id = "unknown-" + uuid.NewString()
	}
	name, ok := o.str("name")
	if !ok {
		name = unknownFieldName
	}

	options := []domain.Option{}
	for _, rawOpt := range o.list("options") {
		opt, ok := asObject(rawOpt)
		if !ok {
			continue
		}
		optID, idOK := opt.str("id")
		optName, nameOK := opt.str("name")
		if !idOK || !nameOK {
			continue
		}
		color, _ := opt.str("color")
		options = append(options, domain.Option{ID: optID, Name: optName, Color: color})
	}

	return domain.Field{ID: id, Name: name, Options: options}, true
}

func decodeItem(raw json.RawMessage) (domain.Item, bool) {
	o, ok := asObject(raw)
	if !ok {
		return domain.Item{}, false
	}
	id, ok := o.str("id")
	if !ok {
		return domain.Item{}, false
	}

	values := []domain.FieldValue{}
	for _, rawValue := range o.nodes("fieldValues") {
		v, ok := asObject(rawValue)
		if !ok {
			continue
		}
		fv := domain.FieldValue{}
		fv.Name, _ = v.str("name")
		fv.OptionID, _ = v.str("optionId")
		if field, ok := v.obj("field"); ok {
			fv.Field.ID, _ = field.str("id")
			fv.Field.Name, _ = field.str("name")
		}
		values = append(values, fv)
	}

	return domain.Item{
		ID:          id,
		FieldValues: values,
		Content:     DecodeContent(o["content"]),
	}, true
}

func decodeIssue(o object) (*domain.Content, bool) {
	c, ok := decodeLinked(o, domain.ContentTypeIssue)
	if !ok {
		return nil, false
	}
	c.Labels = decodeLabels(o.nodes("labels"))
	return c, true
}

func decodePullRequest(o object) (*domain.Content, bool) {
	return decodeLinked(o, domain.ContentTypePullRequest)
}

// decodeLinked decodes the fields shared by issues and pull requests.
func decodeLinked(o object, kind domain.ContentKind) (*domain.Content, bool) {
	if !o.typenameAllows(kind) {
		return nil, false
	}

	title, ok1 := o.str("title")
	number, ok2 := o.int("number")
	state, ok3 := o.str("state")
	u, ok4 := o.str("url")
	created, ok5 := o.str("createdAt")
	updated, ok6 := o.str("updatedAt")
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return nil, false
	}

	id, _ := o.str("id")
	return &domain.Content{
		Kind:      kind,
		ID:        id,
		Title:     title,
		Number:    number,
		State:     state,
		URL:       u,
		CreatedAt: created,
		UpdatedAt: updated,
		Assignees: decodeAssignees(o.nodes("assignees")),
	}, true
}

func decodeDraftIssue(o object) (*domain.Content, bool) {
	if !o.typenameAllows(domain.ContentTypeDraftIssue) {
		return nil, false
	}
	title, ok := o.str("title")
	if !ok {
		return nil, false
	}

	c := &domain.Content{Kind: domain.ContentTypeDraftIssue, Title: title, State: domain.DraftState}
	c.ID, _ = o.str("id")
	c.Body, _ = o.str("body")
	c.CreatedAt, _ = o.str("createdAt")
	c.UpdatedAt, _ = o.str("updatedAt")
	if c.UpdatedAt == "" {
		c.UpdatedAt = c.CreatedAt
	}
	return c, true
}

func decodeAssignees(nodes []json.RawMessage) []domain.Assignee {
	var assignees []domain.Assignee
	for _, raw := range nodes {
		o, ok := asObject(raw)
		if !ok {
			continue
		}
		login, ok := o.str("login")
		if !ok {
			continue
		}
		a := domain.Assignee{Login: login}
		a.ID, _ = o.str("id")
		a.AvatarURL, _ = o.str("avatarUrl")
		assignees = append(assignees, a)
	}
	return assignees
}

func decodeLabels(nodes []json.RawMessage) []domain.Label {
	var labels []domain.Label
	for _, raw := range nodes {
		o, ok := asObject(raw)
		if !ok {
			continue
		}
		name, ok := o.str("name")
		if !ok {
			continue
		}
		l := domain.Label{Name: name}
		l.ID, _ = o.str("id")
		l.Color, _ = o.str("color")
		labels = append(labels, l)
	}
	return labels
}

// object is a lazily decoded JSON object: every key is decoded on demand so that one
// mistyped key never fails its siblings.
type object map[string]json.RawMessage

func asObject(raw json.RawMessage) (object, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return o, true
}

func (o object) str(key string) (string, bool) {
	raw, ok := o[key]
	if !ok {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}

func (o object) int(key string) (int, bool) {
	raw, ok := o[key]
	if !ok {
		return 0, false
	}
	var n *int
	if err := json.Unmarshal(raw, &n); err != nil || n == nil {
		return 0, false
	}
	return *n, true
}

func (o object) obj(key string) (object, bool) {
	raw, ok := o[key]
	if !ok {
		return nil, false
	}
	return asObject(raw)
}

// list decodes o[key] as a JSON array; anything else yields nil.
func (o object) list(key string) []json.RawMessage {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

// nodes returns o[key].nodes, the usual GraphQL connection shape.
func (o object) nodes(key string) []json.RawMessage {
	conn, ok := o.obj(key)
	if !ok {
		return nil
	}
	return conn.list("nodes")
}

// typenameAllows reports whether the object may be decoded as kind: objects without
// __typename are matched structurally, objects with one only match their own kind.
func (o object) typenameAllows(kind domain.ContentKind) bool {
	typename, ok := o.str("__typename")
	return !ok || typename == string(kind)
}
