// Package pco provides types, interfaces, and helpers for working with the
// Planning Center Online People API.
//
// # Overview
//
// The pco package defines the JSON:API document shapes (Document, Resource,
// Links), the People domain types (Person, Household, FieldDatum), and the
// interfaces for resource-oriented clients (PeopleClient, HouseholdsClient,
// FilesClient). A concrete implementation of these clients is provided by the
// pcoclient package, which wires configuration, transport, authentication,
// rate limiting, and retry behavior. Most consumers should import pcoclient to
// construct a client and then interact with the resource client interfaces
// exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/steeplehq/pco-go/pkg/pco"
//	  "github.com/steeplehq/pco-go/pkg/pcoclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := pcoclient.New(ctx, &pco.Config{AccessToken: "token"})
//	  if err != nil { log.Fatal(err) }
//
//	  // List the first page of people
//	  people, err := cli.People().List(ctx, pco.NewQueryParams().WithPerPage(50))
//	  if err != nil { log.Fatal(err) }
//	  _ = people
//	}
//
// # Queries and pagination
//
// Use QueryParams to express common list options (page, per_page, order,
// include, where filters). The package also provides helpers for iterating or
// collecting paginated results by following each response's links.next URL:
//
//	it := pco.NewPaginationIterator(ctx, cli.People(), "/people", pco.NewQueryParams())
//	for it.HasNext() {
//	  person, err := it.Next()
//	  if err != nil { break }
//	  _ = person
//	}
//
// or fetch all results at once:
//
//	all, err := pco.FetchAllPages(ctx, cli.People(), "/people", nil)
//	if err != nil { /* handle error */ }
//	_ = all
//
// # Errors
//
// Every failure that exhausts recovery surfaces as a *TypedError carrying a
// category (network, authentication, authorization, validation, rate_limit,
// server, external_api, unknown), a severity, a retryable flag, the HTTP
// status when one exists, and the raw JSON:API error objects from the
// response. Helpers such as IsNotFound, IsUnauthorized, and IsRateLimited
// make it easy to branch on common cases, and errors.As works throughout.
//
// # Resilience
//
// The client enforces the API's rolling rate-limit window (adapting to the
// X-PCO-API-Request-Rate-* response headers), retries transient failures with
// exponential backoff and jitter, and refreshes OAuth access tokens on 401
// when a refresh token and refresh callbacks are configured. All of this is
// tunable through Config's RetryPolicy, RateLimitPolicy, and Callbacks.
package pco
