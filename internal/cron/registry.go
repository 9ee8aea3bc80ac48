package cron

import "context"

// Job is one unit of periodic dispatch work (release sweep, location
// retention). Run is invoked once per cycle while the worker holds the
// cluster lock.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the worker's job set keyed by name. Jobs run in
// registration order; registering a name twice replaces the earlier job,
// so wiring code can override a default without duplicating work per
// cycle.
type Registry struct {
	order []string
	jobs  map[string]Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{jobs: map[string]Job{}}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job, replacing any earlier job with the same name.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	name := job.Name()
	if _, exists := r.jobs[name]; !exists {
		r.order = append(r.order, name)
	}
	r.jobs[name] = job
}

// Jobs returns the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		jobs = append(jobs, r.jobs[name])
	}
	return jobs
}
