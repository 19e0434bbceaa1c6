package presentation

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"image-enhancer/internal/domain"
)

const resultTitle = "Processed Image"

type jobResolver interface {
	Resolve(ctx context.Context, id string) (domain.Job, error)
}

// View is everything either presentation shows for a job.
type View struct {
	Job          domain.Job
	Title        string
	Caption      string
	DownloadName string
}

// Resolve is the one place a job id turns into a View. Errors from the
// resolver are returned unchanged so callers can tell not-found from a
// failing service.
func Resolve(ctx context.Context, resolver jobResolver, id string) (View, error) {
	job, err := resolver.Resolve(ctx, id)
	if err != nil {
		return View{}, err
	}

	return View{
		Job:          job,
		Title:        resultTitle,
		Caption:      caption(job),
		DownloadName: downloadName(job),
	}, nil
}

func caption(job domain.Job) string {
	var parts []string
	if job.Algorithm != "" && job.Model != "" {
		parts = append(parts, domain.Selection{Algorithm: job.Algorithm, Model: job.Model}.String())
	}
	if job.Scale > 0 {
		parts = append(parts, fmt.Sprintf("x%d", job.Scale))
	}
	if job.Input != "" {
		parts = append(parts, job.Input)
	}
	return strings.Join(parts, " · ")
}

func downloadName(job domain.Job) string {
	if u, err := url.Parse(job.OutputURL); err == nil {
		if name := path.Base(u.Path); name != "." && name != "/" && name != "" {
			return name
		}
	}
	return job.ID
}
