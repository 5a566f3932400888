// Package pcoclient provides the primary entry point for constructing a
// Planning Center People API client that implements the pco.Client
// interface.
//
// It layers configuration, rate limiting, retries, and authentication on
// top of the resource interfaces and types defined in the pco package. Most
// applications should import pcoclient to build a client, then use the
// returned pco.Client to access resource-specific clients via People() and
// Households().
//
// Quick start
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
//
//	  // With an access token you already have:
//	  cli, err := pcoclient.NewWithAccessToken("eyJhbGciOi...")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with a personal access token pair (HTTP Basic):
//	  cli, err = pcoclient.NewWithAppCredentials("app-id", "app-secret")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with full configuration, including automatic token refresh on
//	  // 401. The refresh callback is required: it is how the application
//	  // learns about rotated credentials.
//	  cli, err = pcoclient.New(&pco.Config{
//	    AccessToken:  "eyJhbGciOi...",
//	    RefreshToken: "refresh-token",
//	    Callbacks: pco.Callbacks{
//	      OnTokenRefresh: func(token pco.TokenPayload) {
//	        // persist token.AccessToken / token.RefreshToken
//	      },
//	    },
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // Use resource clients via the pco.Client interface
//	  people, err := cli.People().List(ctx, pco.NewQueryParams().WithPerPage(10))
//	  if err != nil { log.Fatal(err) }
//	  _ = people
//	}
//
// # Rate limiting
//
// Every request passes through a shared rolling-window rate limiter that
// adapts to the X-PCO-API-Request-Rate-* response headers, so bursts of
// concurrent calls queue locally instead of tripping the server limit.
// RateLimit() on the client exposes a snapshot of the current budget.
//
// # Helpers
//
// The package also provides convenience constructors NewWithAccessToken,
// NewWithAppCredentials, and NewWithRefreshToken that wrap New with the
// appropriate configuration.
package pcoclient
