// Package api holds the HTTP views served by the apiview server: login and
// registration, the demo resources guarded by each permission kind, and file
// uploads. Views are plain view.View values; cmd/server mounts them through a
// view.Dispatcher.
package api
