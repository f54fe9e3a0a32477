// Package store defines the persistence contract shared by every model.
//
// ModelRepository abstracts a table of one model type behind an explicit set
// of lookup and write operations. Implementations live under
// internal/platform and report failures as *domain.StructuredError values
// carrying one of the kinds declared here.
package store
