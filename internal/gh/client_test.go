package gh

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the fake GitHub endpoint received.
type recordedRequest struct {
	Method string
	Auth   string
	Body   struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}
}

func newTestServer(t *testing.T, status int, body string) (*Client, *[]recordedRequest) {
	t.Helper()

	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Auth: r.Header.Get("Authorization")}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &rec.Body)
		seen = append(seen, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{GraphQLURL: srv.URL, RESTURL: srv.URL})
	require.NoError(t, err)
	return client, &seen
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{GraphQLURL: "not a url"})
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = New(Config{RESTURL: "/relative"})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("no token sends nothing", func(t *testing.T) {
		client, seen := newTestServer(t, http.StatusOK, `{"data":{}}`)
		_, err := client.Execute(ctx, "query { viewer { login } }", nil, "")
		assert.ErrorIs(t, err, ErrNoToken)
		assert.Empty(t, *seen)
	})

	t.Run("posts document with bearer token", func(t *testing.T) {
		client, seen := newTestServer(t, http.StatusOK, `{"data":{"viewer":{"login":"octocat"}}}`)
		data, err := client.Execute(ctx, "query { viewer { login } }", map[string]interface{}{"n": 1}, "tok")
		require.NoError(t, err)
		assert.JSONEq(t, `{"viewer":{"login":"octocat"}}`, string(data))

		require.Len(t, *seen, 1)
		req := (*seen)[0]
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "Bearer tok", req.Auth)
		assert.Equal(t, "query { viewer { login } }", req.Body.Query)
		assert.Equal(t, float64(1), req.Body.Variables["n"])
	})

	t.Run("graphql errors on 200 are failures", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusOK, `{"data":null,"errors":[{"message":"Could not resolve to a node"}]}`)
		_, err := client.Execute(ctx, "query {}", nil, "tok")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidResponse)

		var gqlErr *GraphQLError
		require.True(t, errors.As(err, &gqlErr))
		assert.Equal(t, "Could not resolve to a node", gqlErr.Message)
	})

	t.Run("non-2xx is invalid response even with a json body", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusUnauthorized, `{"data":{"viewer":null}}`)
		_, err := client.Execute(ctx, "query {}", nil, "tok")
		assert.ErrorIs(t, err, ErrInvalidResponse)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	})

	t.Run("malformed body is invalid response", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusOK, `<html>oops</html>`)
		_, err := client.Execute(ctx, "query {}", nil, "tok")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("unreachable host is network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client, err := New(Config{GraphQLURL: url})
		require.NoError(t, err)
		_, err = client.Execute(ctx, "query {}", nil, "tok")
		assert.ErrorIs(t, err, ErrNetwork)
	})
}

func TestMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("update item field sends option as variable", func(t *testing.T) {
		client, seen := newTestServer(t, http.StatusOK, `{"data":{"updateProjectV2ItemFieldValue":{"projectV2Item":{"id":"I1"}}}}`)
		err := client.UpdateItemField(ctx, "tok", "P1", "I1", "F1", "O\"1")
		require.NoError(t, err)

		vars := (*seen)[0].Body.Variables
		assert.Equal(t, "P1", vars["projectId"])
		assert.Equal(t, map[string]interface{}{"singleSelectOptionId": "O\"1"}, vars["value"])
	})

	t.Run("add draft returns item id", func(t *testing.T) {
		client, seen := newTestServer(t, http.StatusOK, `{"data":{"addProjectV2DraftIssue":{"projectItem":{"id":"PVTI_new"}}}}`)
		id, err := client.AddDraftIssue(ctx, "tok", "P1", "Title \"quoted\"\nline", "")
		require.NoError(t, err)
		assert.Equal(t, "PVTI_new", id)

		input := (*seen)[0].Body.Variables["input"].(map[string]interface{})
		assert.Equal(t, "Title \"quoted\"\nline", input["title"])
		assert.NotContains(t, input, "body")
	})

	t.Run("add draft without item is invalid response", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusOK, `{"data":{"addProjectV2DraftIssue":null}}`)
		_, err := client.AddDraftIssue(ctx, "tok", "P1", "T", "B")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("update draft requires draftIssue in response", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusOK, `{"data":{"updateProjectV2DraftIssue":{"draftIssue":null}}}`)
		err := client.UpdateDraftIssue(ctx, "tok", "DI_1", "T", "")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("update draft succeeds", func(t *testing.T) {
		client, seen := newTestServer(t, http.StatusOK, `{"data":{"updateProjectV2DraftIssue":{"draftIssue":{"id":"DI_1","title":"T"}}}}`)
		require.NoError(t, client.UpdateDraftIssue(ctx, "tok", "DI_1", "T", "body"))

		input := (*seen)[0].Body.Variables["input"].(map[string]interface{})
		assert.Equal(t, "DI_1", input["draftIssueId"])
		assert.Equal(t, "body", input["body"])
	})
}

func TestFetchViewer(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes user", func(t *testing.T) {
		client, seen := newTestServer(t, http.StatusOK, `{"id":42,"login":"octocat","name":"Mona","avatar_url":"https://a"}`)
		user, err := client.FetchViewer(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
		assert.Equal(t, "octocat", user.Login)
		assert.Equal(t, "https://a", user.AvatarURL)
		assert.Equal(t, http.MethodGet, (*seen)[0].Method)
	})

	t.Run("unauthorized", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusUnauthorized, `{"message":"Bad credentials"}`)
		_, err := client.FetchViewer(ctx, "tok")

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	})
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, Classify(errors.New("boom")), ErrUnknown)
	assert.Same(t, ErrNetwork, Classify(ErrNetwork))
	assert.Nil(t, Classify(nil))

	gqlErr := &GraphQLError{Message: "x"}
	assert.Equal(t, error(gqlErr), Classify(gqlErr))
}

func TestFetchProjects(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes viewer projects", func(t *testing.T) {
		client, seen := newTestServer(t, http.StatusOK, `{"data":{"viewer":{"projectsV2":{"nodes":[
			{"id":"PVT_1","number":1,"title":"Sprint","url":"https://github.com/users/o/projects/1",
			 "fields":{"nodes":[{"id":"F1","name":"Status","options":[{"id":"O1","name":"Todo","color":"GRAY"}]}]},
			 "items":{"nodes":[{"id":"I1","fieldValues":{"nodes":[]},"content":{"__typename":"DraftIssue","id":"DI_1","title":"Write docs","body":""}}]}}
		]}}}}`)
		projects, err := client.FetchProjects(ctx, "tok")
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, "Sprint", projects[0].Title)
		require.Len(t, projects[0].Items, 1)
		assert.Equal(t, "I1", projects[0].Items[0].ID)
		assert.Contains(t, (*seen)[0].Body.Query, "projectsV2(first: 20)")
		assert.Equal(t, "Bearer tok", (*seen)[0].Auth)
	})

	t.Run("summaries omit fields and items", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusOK, `{"data":{"viewer":{"projectsV2":{"nodes":[
			{"id":"PVT_1","number":1,"title":"Sprint","url":""}]}}}}`)
		projects, err := client.FetchProjectSummaries(ctx, "tok")
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Empty(t, projects[0].Items)
	})

	t.Run("graphql errors are invalid response", func(t *testing.T) {
		client, _ := newTestServer(t, http.StatusOK, `{"errors":[{"message":"boom"}]}`)
		_, err := client.FetchProjects(ctx, "tok")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}
