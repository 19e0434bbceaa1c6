package enhancer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"

	"image-enhancer/internal/domain"
)

const (
	fieldImage     = "image"
	fieldModel     = "model"
	fieldScale     = "scale"
	fieldSkipAlpha = "isSkipAlpha"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Submit creates a job. onProgress receives the upload fraction in [0, 1],
// non-decreasing, and is never called after Submit returns. A fraction of 1
// only means the upload finished; the job exists once Submit returns it.
func (c *Client) Submit(ctx context.Context, req domain.SubmissionRequest, onProgress func(float64)) (domain.Job, error) {
	body, contentType, err := encodeSubmission(req)
	if err != nil {
		return domain.Job{}, &SubmissionError{Message: genericSubmissionMessage, Err: err}
	}

	upload := newUploadCounter(int64(len(body)))
	poller := startProgressPoller(upload, c.progressInterval, onProgress)

	var (
		result  submitResponse
		payload errorPayload
	)

	resp, err := c.http.R().
		SetContext(withUploadCounter(ctx, upload)).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		SetResult(&result).
		SetError(&payload).
		Post(pathRunProcess)

	poller.stop()

	if err != nil && (resp == nil || !resp.IsError()) {
		c.logger.Error().Err(err).Str("model", req.Selection.Key()).Msg("Submission request failed")
		return domain.Job{}, &SubmissionError{Message: genericSubmissionMessage, Err: err}
	}

	if !resp.IsSuccess() {
		subErr := &SubmissionError{
			StatusCode: resp.StatusCode(),
			Message:    genericSubmissionMessage,
			Err:        fmt.Errorf("run_process returned status %d", resp.StatusCode()),
		}
		if msg := payload.message(); msg != "" {
			subErr.Message = msg
			subErr.Structured = true
		}
		c.logger.Warn().
			Int("status", resp.StatusCode()).
			Str("message", subErr.Message).
			Msg("Service rejected submission")
		return domain.Job{}, subErr
	}

	if result.ID == "" {
		return domain.Job{}, &SubmissionError{
			StatusCode: resp.StatusCode(),
			Message:    genericSubmissionMessage,
			Err:        errors.New("response is missing the job id"),
		}
	}

	c.logger.Info().
		Str("job_id", result.ID).
		Str("model", req.Selection.Key()).
		Bool("inline_output", result.OutputURL != "").
		Msg("Job submitted")

	return domain.Job{
		ID:        result.ID,
		OutputURL: result.OutputURL,
		Algorithm: req.Selection.Algorithm,
		Model:     req.Selection.Model,
		Scale:     req.Scale,
		Input:     req.Image.Filename,
	}, nil
}

func encodeSubmission(req domain.SubmissionRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := req.Image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		fieldImage, quoteEscaper.Replace(req.Image.Filename)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(req.Image.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}

	fields := [][2]string{
		{fieldModel, req.Selection.Key()},
		{fieldScale, strconv.Itoa(req.Scale)},
	}
	if req.SkipAlpha {
		fields = append(fields, [2]string{fieldSkipAlpha, "true"})
	}

	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}
