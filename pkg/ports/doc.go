/*
Package ports defines the driven ports (interfaces) for the skein engine and
its services.

These interfaces decouple the core logic from external implementations, allowing
stories to come from various libraries and sessions to live in various stores.

# Key Interfaces

  - StoryObserver: Receives content, choice and completion notifications from the engine.
  - StoryLibrary: Resolves story IDs to scripts (e.g., from Loam or Memory).
  - SnapshotStore: Responsible for persisting and loading session Snapshots.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
