// Package domain defines the model contract consumed by the generic
// manager, repository and transformer, the example models served by the
// API, and the structured error object returned to clients.
//
// Models are plain Go structs. They expose their columns through
// Attributes, accept assignments through Fill, and may declare their
// conventions (key, primary key, page size, validation rules, named
// repository and transformer) by implementing Configurable.
package domain
