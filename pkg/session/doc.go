/*
Package session serves stories to many concurrent players.

A Manager compiles stories from a ports.StoryLibrary once and shares them,
keeps each player's progress as a domain.Snapshot in a ports.SnapshotStore,
and serializes access per session with ref-counted local mutexes plus an
optional ports.DistributedLocker for multi-replica deployments.
*/
package session
