package domain

// Job is one server-side enhancement task. OutputURL is set once the job
// is resolvable; the descriptive fields are filled when the service's task
// record carries them.
type Job struct {
	ID        string
	OutputURL string

	Algorithm string
	Model     string
	Scale     int
	Input     string
	Status    string
}

func (j Job) Resolvable() bool {
	return j.OutputURL != ""
}

// SubmissionEventKind distinguishes progress from the two terminal events.
type SubmissionEventKind string

const (
	EventProgress  SubmissionEventKind = "progress"
	EventSucceeded SubmissionEventKind = "done"
	EventFailed    SubmissionEventKind = "failed"
)

// SubmissionEvent is one entry of a submission's ordered event stream:
// any number of progress events followed by exactly one terminal event.
type SubmissionEvent struct {
	Kind     SubmissionEventKind
	Progress float64
	Job      *Job
	Err      error
}

func (e SubmissionEvent) Terminal() bool {
	return e.Kind == EventSucceeded || e.Kind == EventFailed
}

// UploadComplete reports whether every byte of the upload has been sent
// and the submission is waiting for the service to answer.
func (e SubmissionEvent) UploadComplete() bool {
	return e.Kind == EventProgress && e.Progress >= 1
}
