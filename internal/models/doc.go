// Package models defines the persistent entities of facescan.
//
// Only finished scan attempts are stored ([ScanRecord]). Live session state is never persisted, and neither is the
// reference image or the Google credential used for a scan.
//
// Every persistent entity implements the [Model] interface providing ID, timestamps, and validation. The
// Repository[T] interface defines standard CRUD operations for database access; records are soft deleted.
package models
