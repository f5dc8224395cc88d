// Package webapi is the client for the identity verification service.
//
// A job moves through the stages
//
//	Validating -> Signing -> Uploading -> AwaitingUpload -> PollingStatus -> Terminal
//
// Validation failures are raised locally before any request is made. Slot
// allocation and archive upload are never retried; only job status polling
// retries, bounded by an attempt budget. Every job status response must carry
// a signature the partner's Signer can confirm.
//
// Document-only jobs (job type 5) skip upload and polling and are answered
// synchronously by the id verification endpoint.
package webapi
