// Package retry provides configurable retry with backoff for operations
// against the browsing surface: navigations that time out and login
// attempts classified as soft failures.
package retry
