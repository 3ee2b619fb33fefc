// Package solver shells out to the external optimization and
// document-generation executables. The executables own their algorithms;
// this package only stages their inputs, runs them, and collects results.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"roster-go/internal/config"
	"roster-go/internal/roster"
)

// Fixed filenames the solver expects in its working directory.
const (
	teachersFileName = "Enseignants_participants.xlsx"
	wishesFileName   = "Souhaits_avec_ids.xlsx"
	examsFileName    = "Répartition_SE_dedup.xlsx"
	resultFileName   = "schedule_solution.xlsx"
)

// Runner stages inputs for and executes the external executables.
type Runner struct {
	cfg        config.SolverConfig
	files      roster.Files
	logger     roster.Logger
	resultPath string
	uploadsDir string
	output     io.Writer
}

// NewRunner creates a Runner. resultPath is where the active solution
// spreadsheet lives; uploadsDir is where user-supplied inputs are kept.
// Solver output is streamed to out as it arrives.
func NewRunner(cfg config.SolverConfig, files roster.Files, logger roster.Logger, resultPath, uploadsDir string, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		cfg:        cfg,
		files:      files,
		logger:     logger,
		resultPath: resultPath,
		uploadsDir: uploadsDir,
		output:     out,
	}
}

// SolveInput names the three input spreadsheets and the optional per-grade
// hour targets forwarded to the solver.
type SolveInput struct {
	TeachersFile string
	WishesFile   string
	ExamsFile    string
	GradeHours   map[string]float64
}

// Solve stages the inputs under the solver's fixed filenames, runs the
// optimization executable, and on success copies the produced solution
// spreadsheet to the active result path.
func (r *Runner) Solve(ctx context.Context, in SolveInput) error {
	if r.cfg.SolverCommand == "" {
		return fmt.Errorf("%w: no solver command configured", roster.ErrProcess)
	}
	if err := os.MkdirAll(r.cfg.WorkspaceDir, 0755); err != nil {
		return fmt.Errorf("%w: creating workspace: %v", roster.ErrIO, err)
	}

	staged := map[string]string{
		teachersFileName: in.TeachersFile,
		wishesFileName:   in.WishesFile,
		examsFileName:    in.ExamsFile,
	}
	for name, src := range staged {
		if err := r.files.Copy(src, filepath.Join(r.cfg.WorkspaceDir, name)); err != nil {
			return fmt.Errorf("staging %s: %w", name, err)
		}
	}

	args := append([]string{}, r.cfg.SolverArgs...)
	if len(in.GradeHours) > 0 {
		encoded, err := json.Marshal(in.GradeHours)
		if err != nil {
			return fmt.Errorf("encoding grade hours: %w", err)
		}
		args = append(args, "--grade-hours", string(encoded))
	}

	r.logger.Info("running solver", "command", r.cfg.SolverCommand, "workspace", r.cfg.WorkspaceDir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.cfg.SolverCommand, args...)
	cmd.Dir = r.cfg.WorkspaceDir
	cmd.Stdout = r.output
	cmd.Stderr = io.MultiWriter(r.output, &stderr)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: solver failed: %v: %s", roster.ErrProcess, err, stderr.String())
	}

	produced := filepath.Join(r.cfg.WorkspaceDir, resultFileName)
	if !r.files.Exists(produced) {
		return fmt.Errorf("%w: solver exited cleanly but produced no %s", roster.ErrProcess, resultFileName)
	}

	if err := r.files.Copy(produced, r.resultPath); err != nil {
		return fmt.Errorf("publishing solution: %w", err)
	}

	r.logger.Info("solver finished", "result", r.resultPath)
	return nil
}
