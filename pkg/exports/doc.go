// Package exports rewrites .desktop and .service files inside a
// deployment's export/ subtree so they launch under the sandbox, and
// publishes an installation-wide exports/ tree of symlinks into the
// current app's active deployment.
package exports
