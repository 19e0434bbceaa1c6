package dto

import "html/template"

type ModelOption struct {
	Key      string
	Label    string
	Selected bool
}

type AlgorithmGroup struct {
	Name    string
	Options []ModelOption
}

type Notification struct {
	Level   string
	Message string
}

type FormPage struct {
	Token        string
	Groups       []AlgorithmGroup
	Scale        int
	MinScale     int
	MaxScale     int
	ScaleMarks   []int
	SkipAlpha    bool
	MaxUploadMB  int64
	Notification *Notification
}

type UnavailablePage struct {
	Message string
}

type ErrorPage struct {
	Status  int
	Title   string
	Message string
}

type ProgressPanel struct {
	Token     string
	Filename  string
	Thumbnail template.URL
}

// SubmitControl is the form's submit button. It stays disabled while a
// submission is outstanding; OOB marks an out-of-band swap.
type SubmitControl struct {
	Busy bool
	OOB  bool
}

type ProgressBar struct {
	Percent  int
	Uploaded bool
}

// SubmissionDone is sent when the service accepted the submission. It
// navigates to the job and refreshes the form token.
type SubmissionDone struct {
	JobID     string
	NextToken string
}

type SubmissionFailed struct {
	Notification Notification
	NextToken    string
}
