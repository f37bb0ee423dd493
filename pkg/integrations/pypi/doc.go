// Package pypi provides an HTTP client for the Python Package Index.
//
// # Overview
//
// Two endpoints are used:
//
//   - GET /simple/ with Accept: application/vnd.pypi.simple.v1+json lists
//     every project with its last serial ([Client.ListProjects])
//   - GET /pypi/{name}/json returns one project's metadata document
//     ([Client.FetchMetadata])
//
// # Usage
//
//	client := pypi.NewClient(cache.NewNullCache(), 0)
//
//	projects, err := client.ListProjects(ctx)
//	if err != nil {
//	    return err // never proceed with an empty snapshot
//	}
//
//	md, err := client.FetchMetadata(ctx, "requests", projects["requests"])
//	reqs, _ := md.RequiresDist()
//
// # Caching
//
// Metadata documents are cached under "name@serial". The listing is never
// cached: it is the staleness signal for everything else.
//
// Package names are normalized following PEP 503.
package pypi
