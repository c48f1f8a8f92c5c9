// Package attachment downloads route attachments (GPX tracks) behind a
// confirmation page and stores each distinct file exactly once.
package attachment
