// Package cli provides the docsync command-line front end.
//
// It wires configuration, the remote store backend, the session cache, the
// sync engine and the admin operations, then serves an interactive shell.
// Typical flow: log in against the remote users collection, pull, stage
// documents with add, push the chosen ones, and (as Admin) validate.
//
// The command tree is built by NewRootCommand; the shell loop is runREPL.
package cli
