// Package config loads, normalizes, and validates segexport configuration.
//
// Settings come from a TOML file in which ${VAR} references are expanded from
// the environment before parsing, so secrets such as the image host token can
// stay out of the file. Missing keys keep the values from Default. Paths are
// expanded (including ~) and validated once here; the rest of the program
// receives ready-to-use export and image source options.
package config
