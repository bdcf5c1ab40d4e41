// Package model holds the types shared by the alignment store packages.
//
// This package contains type definitions, the error taxonomy and the
// journal body encoding. It imports only bcvwp internally, so every
// repository package can depend on it without cycles.
//
// Conventions:
//   - Word ids surfaced to callers carry no side prefix; the prefixed form
//     is produced by WordKey and only used inside the store.
//   - JSON tags on wire types (ServerLink, JournalEntryDTO) follow the
//     remote contract; everything else uses snake_case.
package model
