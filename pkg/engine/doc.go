// Package engine is the central orchestrator of the deployment
// lifecycle: pull, checkout, rewrite exports, set active, make
// current, undeploy, prune, and the list queries consumers use to
// enumerate deployments and refs.
package engine
