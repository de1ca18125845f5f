// Package context defines the Context shared by the app, cli and web
// packages, which gives commands access to the filesystem, database,
// configuration and standard streams.
package context
