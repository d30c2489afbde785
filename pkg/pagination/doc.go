// Package pagination provides incremental loading for paginated satellite groups.
//
// The catalog origin serves a group as limit/offset pages; a page shorter than
// the requested limit marks the end of the group. The loader walks a group
// sequentially so that every page can be rendered as soon as it arrives.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig(primaryURL, secondaryURL))
//	loader := pagination.NewLoader(c, pagination.DefaultConfig())
//	result, err := loader.Load(ctx, "active", pagination.Options{
//		OnPage: func(offset int, records []satellite.Record) { render(records) },
//	})
//
// The loader:
//   - Requests min(PageSize, Target-loaded) records per page
//   - Advances the offset by the number of records received
//   - Stops on a short page or when Target is reached
//   - Returns partial data together with the error when a page fails
package pagination
