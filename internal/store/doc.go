// Package store provides the SQLite files backing alignment projects.
//
// Each project lives in its own file under <data>/projects, named from the
// sanitized application and project names. A separate user file holds
// preferences shared by all projects. Manager owns the open handles and is
// the only way repositories obtain one.
//
// # Tables (project store)
//
//   - language, corpora, words_or_parts: imported texts, keyed by
//     "<side>:<BCVWP>" for words
//   - links: one row per alignment, with cached sources_text/targets_text
//   - links__source_words, links__target_words: link membership
//   - journal_entries: local mutations awaiting upload
//
// # Database Configuration
//
//   - WAL mode, synchronous=NORMAL: each file is single-writer and can be
//     rebuilt from its import sources
//   - cache_size=-8000000
//   - busy_timeout=5000
//   - foreign_keys=ON: junction rows must reference an existing link
//
// Schema changes are applied through PRAGMA user_version migrations.
package store
