// Package shell tells the user how to reach installed binaries from their
// shell.
//
// An install succeeds whether or not the install directory is on PATH, but a
// binary that cannot be found by name is a common surprise. After an install
// the CLI checks OnPath and, when the directory is missing, prints the line
// for the detected shell's rc file:
//
//	bash, zsh:  export PATH="/home/me/.local/bin:$PATH"   (~/.bashrc, ~/.zshrc)
//	fish:       fish_add_path '/home/me/.local/bin'        (~/.config/fish/config.fish)
//
// # Shell Detection
//
// Shell detection tries two methods:
//  1. $SHELL environment variable (most reliable)
//  2. Parent process name
//
// Nothing in this package edits rc files.
package shell
