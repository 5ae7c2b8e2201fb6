// Package domain defines the core domain types for the Motorpool car
// inventory service.
//
// Car is the single persisted entity: an integer primary key assigned by
// the repository, three string-valued descriptive fields (make, model,
// year) capped at MaxFieldLen characters, and created/updated timestamps.
//
// Fleet is a bulk container used by the import/export codecs.
//
// The package carries no database or HTTP dependencies; validation and
// partial-update application live here so every layer above shares the
// same rules.
package domain
