// Package ui implements the interactive terminal form using bubbletea's Elm architecture.
//
// The form has the same parts as the web page:
//   - a backend warning banner when the health probe failed
//   - the Google Drive folder link and reference image fields
//   - Google sign-in, run as a loopback OAuth flow in the browser
//   - the scan button, disabled while scanning or while the backend is down
//   - a progress bar and the list of matching images
//
// The (view) [Model] is a thin layer over [session.Controller]: every input goes through the controller and the view
// re-renders its [session.State]. The health probe and the scan request are the only blocking work and both run as
// [tea.Cmd]s whose results come back as [Msg] values on the update loop.
//
// Logging goes to a file since the terminal is owned by the program.
package ui
