// Package ranks resolves Slippi ranked-netplay standings for connect codes.
// The Client speaks the public GraphQL profile endpoint; the Resolver layers
// process-lifetime caching and async delivery on top so rank resolution never
// slows down a scan.
package ranks
