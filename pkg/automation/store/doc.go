// Package store owns the automation rule set. The Store keeps the
// authoritative in-memory Registry, mirrors mutations to a pluggable
// persistence Backend (memory or SQLite), seeds from a YAML rules file,
// and hot-reloads it via fsnotify.
//
// Rule load failure at initialization is the only fatal error in the
// package and is reported as *LoadError; everything else degrades.
package store
