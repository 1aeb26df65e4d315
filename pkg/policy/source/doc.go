// Package source loads policies from external locations into a
// policy.Store.
//
// Two sources are provided: a directory of YAML policy files with an
// fsnotify watcher (debounced, so editor save storms trigger one reload),
// and a Git repository that is cloned locally and re-pulled on demand.
package source
