// Package core provides the business logic for content import operations.
//
// This package is the heart of the importer, containing all domain logic
// independent of any UI or transport layer. It is used by the web handlers,
// the contentctl CLI, and tests without modification.
//
// # Architecture
//
// The package is organized around three stages:
//
//   - Parsing: [Parse] turns JSON, YAML, or CSV bytes into a [Source] of
//     ordered [Record] values.
//   - Mapping: [ProposeDefaultMapping] derives a [FieldMapping] from the first
//     record and the target model's fields; [ApplyMapping] renames fields.
//   - Persistence: [Service.ImportData] writes records through a [Store];
//     [Service.DeleteAllData] empties a model.
//
// # Model Registry
//
// Content models are registered at startup using [Register], usually from
// the YAML catalogue loaded by the schema package:
//
//	core.Register(core.ModelDescriptor{
//	    UID:    "api::article.article",
//	    Kind:   core.CollectionType,
//	    Group:  "blog",
//	    Fields: []string{"title", "body", "slug"},
//	})
//
// # Import Flow
//
//  1. The caller parses the upload with [Parse]
//  2. The caller reviews the mapping proposed by [ProposeDefaultMapping],
//     editing it with [FieldMapping.Set] or applying a saved template
//  3. [Service.ImportData] takes an import slot, then creates the records one
//     at a time and stops at the first store error
//  4. The outcome is audited and published as an [Event]
//
// Records persisted before a failure are kept.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - PRS001-PRS004: Parse errors (syntax, shape, encoding)
//   - VAL001-VAL003: Request validation errors
//   - MAP001-MAP002: Mapping errors
//   - IMP001: Batch import failures
//   - DB001-DB006: Database errors
//   - MDL001, TPL001, RATE001: Unknown model, template, too many imports
//
// # Audit Logging
//
// Imports, deletions, and template changes are recorded with severity levels:
//
//   - Low: Template changes
//   - High: Imports and failed imports
//   - Critical: Delete-all
package core
