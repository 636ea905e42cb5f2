/*
Package ports defines the driven ports used around a ViewModel.

These interfaces decouple state persistence from concrete backends, so the same
saved-state manager works against memory or redis.

# Key Interfaces

  - StateStore: persists and loads a ViewModel State by ID.
  - DistributedLocker: serializes access to one saved State across replicas.

RunStateStoreContract is a reusable test suite every StateStore adapter runs.
*/
package ports
