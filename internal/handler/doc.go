// Package handler implements HTTP request handlers for the Motorpool API.
//
// CarHandler exposes the car inventory as conventional REST endpoints:
// GET/POST on the collection, GET/PUT/PATCH/DELETE on single cars, plus
// fleet import/export and a health probe.
//
// Success responses return JSON data with appropriate status codes
// (200, 201, 204). Error responses return JSON with {error, details}
// structure.
//
// Middleware provides panic recovery, CORS, per-request ULIDs, and
// request logging; Chain composes them with the first listed outermost.
package handler
