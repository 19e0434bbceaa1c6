package dto

// SubmitForm holds the scalar fields of the submission form. The image
// itself is read from the multipart file part.
type SubmitForm struct {
	Token     string `schema:"token" validate:"required,max=64"`
	Model     string `schema:"model" validate:"required,max=256"`
	Scale     int    `schema:"scale" validate:"min=2,max=16"`
	SkipAlpha bool   `schema:"skipAlpha"`
}
