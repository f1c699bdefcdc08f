package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueryAll_FollowsCursor(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("cursor-abc"),
	}, nil).Once()
	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("cursor-abc")
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p2"}},
	}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, notionapi.ObjectID("p2"), pages[1].ID)
	mc.AssertExpectations(t)
}

func TestQueryAll_Error(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "db-1", mock.Anything).Return(nil, assert.AnError).Once()

	_, err := QueryAll(ctx, mc, "db-1", nil)
	assert.ErrorContains(t, err, "notion: query all")
}

func TestQueryByStatus(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "leads", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == "Status" && pf.Status != nil && pf.Status.Equals == "Queued"
	})).Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "p1"}}}, nil).Once()

	pages, err := QueryByStatus(ctx, mc, "leads", "Status", "Queued")
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	mc.AssertExpectations(t)
}

func TestQueryByStatus_Error(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "leads", mock.Anything).Return(nil, assert.AnError)

	pages, err := QueryByStatus(ctx, mc, "leads", "Status", "Queued")
	assert.Nil(t, pages)
	assert.ErrorContains(t, err, "notion: query Queued pages")
}

func TestCreateRows(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	var titles []string
	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		_, hasStatus := req.Properties["Status"]
		return req.Parent.DatabaseID == "leads" && hasStatus
	})).Run(func(args mock.Arguments) {
		req := args.Get(1).(*notionapi.PageCreateRequest)
		tp := req.Properties["Name"].(notionapi.TitleProperty)
		titles = append(titles, tp.Title[0].Text.Content)
	}).Return(&notionapi.Page{ID: "new"}, nil).Twice()

	n, err := CreateRows(ctx, mc, "leads", "Name", []string{"a", "b"},
		notionapi.Properties{"Status": Status("Queued")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, titles)
}

func TestCreateRows_StopsOnError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	mc.On("CreatePage", ctx, mock.Anything).Return(&notionapi.Page{ID: "ok"}, nil).Once()
	mc.On("CreatePage", ctx, mock.Anything).Return(nil, assert.AnError).Once()

	n, err := CreateRows(ctx, mc, "leads", "Name", []string{"a", "b", "c"}, nil)
	assert.Equal(t, 1, n)
	assert.ErrorContains(t, err, `notion: create row "b"`)
}
