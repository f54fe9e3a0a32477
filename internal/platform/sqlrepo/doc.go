// Package sqlrepo implements store.ModelRepository for any domain.Model on
// top of database/sql.
//
// The repository derives its column list from the model's attributes and
// builds equality-only statements for a Dialect. Every column name that
// reaches SQL text is checked against that list first; values are always
// bound as parameters.
package sqlrepo
