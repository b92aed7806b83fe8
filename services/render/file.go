package rendersvc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core"
)

// fileService materializes a published report as a JSON document on local
// disk and serves its frontend URL. It stands in for a real PDF pipeline;
// swapping one in only means replacing this implementation.
type fileService struct {
	dir     string
	baseURL string
}

var _ core.RenderService = (*fileService)(nil)

func NewFileService(conf *core.Config) (core.RenderService, error) {
	dir := filepath.Join(conf.WorkDir, "var", "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating reports dir")
	}
	return &fileService{dir: dir, baseURL: conf.FrontendBaseURL}, nil
}

func (svc fileService) RenderReport(ctx context.Context, reportID string, doc interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding report document")
	}
	path := filepath.Join(svc.dir, reportID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", errors.Wrap(err, "writing report document")
	}
	return svc.baseURL + "/reports/" + reportID, nil
}
