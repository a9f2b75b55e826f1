package export

import "errors"

var (
	// ErrStorageNil is returned by constructors that require a job storage.
	ErrStorageNil = errors.New("export: storage cannot be nil")

	// ErrProviderNil is returned by NewWorker without a record provider.
	ErrProviderNil = errors.New("export: record provider cannot be nil")

	// ErrSinkNil is returned by NewWorker without a file sink.
	ErrSinkNil = errors.New("export: file sink cannot be nil")

	// ErrResolverNil is returned by NewService without an entity resolver.
	ErrResolverNil = errors.New("export: resolver cannot be nil")

	// ErrUnsupportedFormat is returned for formats outside the closed set.
	ErrUnsupportedFormat = errors.New("export: unsupported format")

	// ErrJobNotFound is returned when a job id does not exist.
	ErrJobNotFound = errors.New("export: job not found")

	// ErrJobExists is returned when creating a job with a duplicate id.
	ErrJobExists = errors.New("export: job already exists")

	// ErrNoJobToClaim signals an empty backlog; the worker treats it as a
	// normal idle tick, not a failure.
	ErrNoJobToClaim = errors.New("export: no job to claim")

	// ErrJobNotPending guards the terminal transitions: only a claimed
	// (pending) job may be completed or failed.
	ErrJobNotPending = errors.New("export: job is not pending")

	// ErrWorkerNotRunning is reported by Healthcheck on a stopped worker.
	ErrWorkerNotRunning = errors.New("export: worker is not running")
)
