// Package file provides file-based implementations of driven port interfaces.
//
// ConfigStore keeps settings in ~/.r3form/config.toml and can watch the file
// for edits made outside the program.
package file
