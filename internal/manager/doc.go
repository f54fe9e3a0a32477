// Package manager orchestrates a repository and a transformer for one model
// type.
//
// A Factory, shared by the whole process, holds the Registry of named
// repository and transformer implementations together with the database
// handle. It hands out a fresh Manager per request; a Manager resolves its
// configuration lazily from the model's declared conventions and is not
// safe for concurrent use. ResponseManager turns manager results into
// JSON:API responses.
package manager
