package db

import _ "embed"

//go:embed schema.sql
var Schema string

type JobStatus string

const (
	JOB_PENDING   JobStatus = "PENDING"
	JOB_RUNNING   JobStatus = "RUNNING"
	JOB_COMPLETED JobStatus = "COMPLETED"
	JOB_FAILED    JobStatus = "FAILED"
)

const DefaultRankingThreshold = 2
