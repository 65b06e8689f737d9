// Package services talks to the remote scanning backend.
//
// # Endpoints
//
// The backend exposes two routes relative to the configured API URL:
//   - GET /health : any 2xx means the backend is up
//   - POST /scan : body {drive_link, reference_image, credentials}, answers {matching_images} or {error}
//
// [APIService] performs raw requests and [ScannerService] layers the scan contract on top of it.
//
// # Error Handling
//
// Errors wrap sentinels from the shared package:
//   - [shared.ErrServiceUnavailable] : transport failure, no response
//   - [shared.ErrAPIRequest] : non-2xx ([ServiceError]) or malformed body ([ErrMalformedResponse])
//
// There are no retries and no client-side timeout.
package services
