// Package confloader loads RedWire configuration through koanf.
//
// Sources merge in priority order, later overriding earlier:
//
//  1. YAML configuration file
//  2. REDWIRE_* environment variables
//  3. Explicit overrides (CLI flags)
//
// A fsnotify-based Watcher triggers reload callbacks when the
// configuration file changes on disk.
package confloader
