package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll follows the cursor until the database query is exhausted.
func QueryAll(ctx context.Context, c Client, dbID string, filter notionapi.Filter) ([]notionapi.Page, error) {
	var all []notionapi.Page
	req := &notionapi.DatabaseQueryRequest{Filter: filter}
	for {
		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all")
		}
		all = append(all, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		req = &notionapi.DatabaseQueryRequest{Filter: filter, StartCursor: resp.NextCursor}
	}
}

// QueryByStatus returns every page whose status property equals status.
func QueryByStatus(ctx context.Context, c Client, dbID, property, status string) ([]notionapi.Page, error) {
	pages, err := QueryAll(ctx, c, dbID, notionapi.PropertyFilter{
		Property: property,
		Status:   &notionapi.StatusFilterCondition{Equals: status},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query %s pages", status)
	}
	return pages, nil
}

// CreateRows adds one page per title to the database, each carrying the
// extra properties. It returns how many were created before any error.
func CreateRows(ctx context.Context, c Client, dbID, titleProperty string, titles []string, extra notionapi.Properties) (int, error) {
	created := 0
	for _, title := range titles {
		props := notionapi.Properties{titleProperty: Title(title)}
		for k, v := range extra {
			props[k] = v
		}
		_, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: props,
		})
		if err != nil {
			return created, eris.Wrapf(err, "notion: create row %q", title)
		}
		created++
	}
	return created, nil
}
