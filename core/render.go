package core

import "context"

// RenderService is any external service that can typeset a compiled report
// document and return a URL to the rendered artifact. Rendering happens
// after publication, fire-and-forget: a render failure never rolls back an
// approved report.
type RenderService interface {
	RenderReport(ctx context.Context, reportID string, doc interface{}) (url string, err error)
}
