// Package webhook delivers JSON payloads to subscriber endpoints.
//
// Deliveries are retried with exponential backoff and tagged with a unique
// X-Delivery-Id header for receiver-side deduplication.
package webhook
