// Package pagination maps page indices onto dataset-server row windows and
// fetches them one page at a time.
//
// Page p covers rows [p*PageSize, p*PageSize+PageSize). Pages are fetched
// sequentially in ascending order and the first failure aborts the whole
// fetch, so callers either get every requested page or an error.
//
// Example usage:
//
//	pages, err := pagination.ParsePages("1,2")
//	fetcher := pagination.NewFetcher(rowsClient, dataset, pagination.DefaultConfig())
//	results, err := fetcher.FetchPages(ctx, pages)
//	rows := pagination.Flatten(results) // rows 100..299
package pagination
