package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"roster-go/internal/roster"
)

// Word templates the generator fills in.
const (
	convocationTemplate = "Convocation.docx"
	perSlotTemplate     = "enseignansParSeance.docx"
)

// GenerateGlobalDocs runs the document generator in global mode, producing
// the per-slot surveillance sheets and all convocations. The generator
// reports its outputs as JSON on stdout; that JSON is returned verbatim.
func (r *Runner) GenerateGlobalDocs(ctx context.Context) (json.RawMessage, error) {
	if err := r.stageDocgen(convocationTemplate, perSlotTemplate); err != nil {
		return nil, err
	}
	return r.runDocgen(ctx, "global", nil)
}

// GenerateTeacherDoc runs the generator in teacher mode, producing a single
// convocation for the given teacher.
func (r *Runner) GenerateTeacherDoc(ctx context.Context, teacherID int) (json.RawMessage, error) {
	if err := r.stageDocgen(convocationTemplate); err != nil {
		return nil, err
	}
	return r.runDocgen(ctx, "teacher", []string{strconv.Itoa(teacherID)})
}

// stageDocgen copies the active solution, the teacher roster, and the
// required templates into the working directory.
func (r *Runner) stageDocgen(templates ...string) error {
	if r.cfg.DocgenCommand == "" {
		return fmt.Errorf("%w: no document generator configured", roster.ErrProcess)
	}
	if !r.files.Exists(r.resultPath) {
		return fmt.Errorf("%w: no planning data at %s", roster.ErrNotFound, r.resultPath)
	}
	if err := os.MkdirAll(r.cfg.WorkspaceDir, 0755); err != nil {
		return fmt.Errorf("%w: creating workspace: %v", roster.ErrIO, err)
	}

	if err := r.files.Copy(r.resultPath, filepath.Join(r.cfg.WorkspaceDir, resultFileName)); err != nil {
		return fmt.Errorf("staging solution: %w", err)
	}

	teachersPath, err := r.findTeachersFile()
	if err != nil {
		return err
	}
	dest := filepath.Join(r.cfg.WorkspaceDir, teachersFileName)
	if teachersPath != dest {
		if err := r.files.Copy(teachersPath, dest); err != nil {
			return fmt.Errorf("staging teacher roster: %w", err)
		}
	}

	for _, tmpl := range templates {
		src := filepath.Join(r.cfg.TemplateDir, tmpl)
		if !r.files.Exists(src) {
			return fmt.Errorf("%w: template %s not found at %s", roster.ErrNotFound, tmpl, src)
		}
		if err := r.files.Copy(src, filepath.Join(r.cfg.WorkspaceDir, tmpl)); err != nil {
			return fmt.Errorf("staging template %s: %w", tmpl, err)
		}
	}
	return nil
}

// findTeachersFile locates the teacher roster spreadsheet, preferring the
// most recently uploaded copy over whatever was staged last run.
func (r *Runner) findTeachersFile() (string, error) {
	candidates := []string{
		filepath.Join(r.uploadsDir, teachersFileName),
		filepath.Join(filepath.Dir(r.resultPath), teachersFileName),
		filepath.Join(r.cfg.TemplateDir, teachersFileName),
		filepath.Join(r.cfg.WorkspaceDir, teachersFileName),
	}
	for _, candidate := range candidates {
		if r.files.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: teacher roster %s not found in any of %v", roster.ErrNotFound, teachersFileName, candidates)
}

// runDocgen executes the generator and parses its JSON report.
func (r *Runner) runDocgen(ctx context.Context, mode string, extra []string) (json.RawMessage, error) {
	args := append([]string{}, r.cfg.DocgenArgs...)
	args = append(args, mode, filepath.Join(r.cfg.WorkspaceDir, resultFileName))
	args = append(args, extra...)

	r.logger.Info("running document generator", "command", r.cfg.DocgenCommand, "mode", mode)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.cfg.DocgenCommand, args...)
	cmd.Dir = r.cfg.WorkspaceDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: document generator failed: %v: %s", roster.ErrProcess, err, stderr.String())
	}

	report := bytes.TrimSpace(stdout.Bytes())
	if !json.Valid(report) {
		return nil, fmt.Errorf("%w: document generator produced invalid report: %s", roster.ErrFormat, report)
	}
	return json.RawMessage(report), nil
}
