// Package service provides the domain services for proctree.
//
// SnapshotService implements the point-in-time capture of the task
// hierarchy; AuthService handles API key authentication and per-key
// rate limiting for the HTTP surface.
package service
