// Package transformer turns models into JSON:API documents.
//
// A Transformer decides which attributes of a model are exposed and which
// related resources can be included. The Serializer walks Item, Collection
// and Null resources, follows the includes requested through a Scope and
// builds a Document with de-duplicated "included" members and pagination
// metadata.
package transformer
