// Package confloader provides configuration loading on top of koanf.
//
// Sources are merged with later ones overriding earlier:
//
//  1. Default values
//  2. YAML configuration file
//  3. Environment variables (PROCTREE_ prefix)
//  4. Command-line flags (loaded separately as a map)
//
// A companion fsnotify Watcher triggers reloads when the config file
// changes on disk.
package confloader
