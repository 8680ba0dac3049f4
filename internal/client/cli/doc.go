// Package cli provides the interactive Relationship Timeline terminal client.
//
// It drives the client services from a REPL that works online and offline.
// Typical flow: resume or prompt for a session, start a background
// connectivity watcher, and execute user commands.
//
// Key features:
//   - Register / Login / Logout (online with offline fallback)
//   - List events, or render them as a vertical timeline grouped by year
//   - Add / Edit / Delete events, attach and detach files or links
//   - Private comments and questions on events
//   - Export to PDF or DOCX, download attachments
//   - Sync events and attachments created offline
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
