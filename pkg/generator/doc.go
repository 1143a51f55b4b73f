// Package generator runs the floogen RTL generator for validated topology
// configurations and keeps track of the resulting jobs.
//
// A Service owns the output root. For every run it creates a job directory,
// writes config.yml, invokes a Runner (LocalRunner for a floogen binary on
// PATH, DockerRunner for a containerised one) and zips rtl_output into
// <job>_rtl.zip. Completed and failed runs are recorded in a JobStore, an
// expiring LRU; a Sweeper removes old job directories on a cron schedule.
// Archives can additionally be pushed to S3 through an S3Publisher.
//
//	store := generator.NewJobStore(1024, 24*time.Hour)
//	svc, err := generator.NewService(generator.NewLocalRunner("floogen"), store, "./output")
//	job, err := svc.Run(ctx, configYAML, "")
package generator
