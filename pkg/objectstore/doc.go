// Package objectstore is a thin wrapper over the content-addressed
// object repository: create/open, read and write objects and refs,
// resolve a ref to a commit, checkout a tree, prune unreferenced
// objects, and list remotes/refs. It does not pull from remotes:
// Engine.Pull fetches objects and stores them through WriteObject and
// WriteRef. Objects are named by their SHA-256 checksum and stored
// under repo/objects/{XX}/{YYYY...}.{type}, mirroring the remote URL
// layout the Remote Fetcher uses for direct object fetches.
package objectstore
