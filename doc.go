// Package annalist is the core data model and presentation engine for a
// filesystem-backed linked-data collection curator.
//
// # Overview
//
// An Annalist site is a directory of collections, each holding JSON-LD
// entity documents organised by type. Collections inherit configuration
// (types, views, lists, fields, vocabularies) from other collections
// along an acyclic chain that terminates at the built-in site data
// collection. Nothing here speaks HTTP: the packages below are the model
// layer a web front end drives.
//
// # Packages
//
//   - annal: vocabulary namespaces, CURIE handling, identifier grammar,
//     on-disk layout constants, software version.
//   - errors: kind-classified error wrapping shared by every package.
//   - types: entity value maps and typed record wrappers (types, views,
//     lists, fields, groups, vocabularies, users).
//   - store: the filesystem entity store with atomic writes, legacy field
//     migration, attachments and collection file management.
//   - collection: sites, collections, inheritance chain resolution,
//     scope-bounded entity lookup, version guard.
//   - registry: per-collection type / field / vocabulary registries with
//     cycle-safe supertype and superproperty closures.
//   - binder: view and list binding, form decoding, repeat group editing
//     actions, list selectors.
//   - contextgen: JSON-LD @context and README generation.
//   - config: site configuration loading and validation.
//   - metric: Prometheus instrumentation shared by the layers above.
package annalist
