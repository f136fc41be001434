// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session drives one conversion session: it owns the selected file
// and the SubmissionState, and is the only code that changes either.
//
// States: idle, validating, submitting, succeeded, failed. A submission runs
// validating -> submitting -> succeeded|failed, and a terminal state returns
// to idle after ResetDelay. Only one submission may be in flight.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/ojamed/internal/classify"
	"github.com/pdiddy/ojamed/internal/client"
	"github.com/pdiddy/ojamed/internal/download"
	"github.com/pdiddy/ojamed/internal/history"
	"github.com/pdiddy/ojamed/internal/options"
	"github.com/pdiddy/ojamed/internal/progress"
	"github.com/pdiddy/ojamed/internal/selection"
	"github.com/pdiddy/ojamed/pkg/types"
)

// DefaultResetDelay is how long a terminal status stays before the session
// returns to idle.
const DefaultResetDelay = 3 * time.Second

// MsgNoFile is shown when submit is attempted without a selected file.
const MsgNoFile = "Please select a lecture file first"

// ErrBusy is returned by Submit while another submission is in flight.
var ErrBusy = errors.New("a submission is already in progress")

// Converter performs the conversion request.
type Converter interface {
	Submit(ctx context.Context, file types.SelectedFile, cfg types.ProcessingConfiguration) ([]byte, error)
}

// Dispatcher saves a received archive and returns where it went.
type Dispatcher interface {
	Trigger(payload []byte, suggestedName string) (string, error)
}

// ProgressStarter starts simulated progress for one attempt.
type ProgressStarter interface {
	Start(ctx context.Context, emit func(types.Progress)) *progress.Handle
}

// Recorder persists finished attempts.
type Recorder interface {
	Record(ctx context.Context, a history.Attempt) error
}

// Options configure a Controller. Converter and Dispatcher are required.
type Options struct {
	Converter  Converter
	Dispatcher Dispatcher

	// Progress defaults to progress.New().
	Progress ProgressStarter

	// Recorder is optional.
	Recorder Recorder

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// ResetDelay defaults to DefaultResetDelay. A negative value disables
	// the automatic return to idle.
	ResetDelay time.Duration

	// OnChange is called with every new state, in order, while the
	// controller's lock is held. It must not call back into the controller.
	OnChange func(types.SubmissionState)
}

// Controller is the session state machine. It is safe for concurrent use.
type Controller struct {
	converter  Converter
	dispatcher Dispatcher
	progress   ProgressStarter
	recorder   Recorder
	logger     *zap.Logger
	resetDelay time.Duration
	onChange   func(types.SubmissionState)
	newID      func() string

	mu         sync.Mutex
	state      types.SubmissionState
	file       *types.SelectedFile
	dragActive bool
	generation uint64
	resetTimer *time.Timer
}

// New returns an idle Controller.
func New(opts Options) *Controller {
	c := &Controller{
		converter:  opts.Converter,
		dispatcher: opts.Dispatcher,
		progress:   opts.Progress,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
		resetDelay: opts.ResetDelay,
		onChange:   opts.OnChange,
		newID:      uuid.NewString,
		state:      types.SubmissionState{Phase: types.PhaseIdle},
	}
	if c.progress == nil {
		c.progress = progress.New()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.resetDelay == 0 {
		c.resetDelay = DefaultResetDelay
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() types.SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// File returns the selected file, if any.
func (c *Controller) File() (types.SelectedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return types.SelectedFile{}, false
	}
	return *c.file, true
}

// CanSubmit reports whether the submit action is enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.busyLocked()
}

// Select validates candidate and, when accepted, makes it the selected file.
// A rejected candidate leaves the current selection unchanged. The status
// message is updated unless a submission is in flight.
func (c *Controller) Select(candidate types.SelectedFile) selection.Decision {
	d := selection.Validate(candidate)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d.Accepted {
		f := d.File
		c.file = &f
		c.logger.Info("file selected", zap.String("name", f.Name), zap.Int64("size", f.Size))
	} else {
		c.logger.Info("file rejected", zap.String("name", candidate.Name), zap.String("media_type", candidate.MediaType))
	}

	if !c.busyLocked() {
		next := c.state
		if d.Accepted {
			next.Message = fmt.Sprintf("Selected: %s", d.File.Name)
		} else {
			next.Message = d.Reason
		}
		c.setLocked(next)
	}
	return d
}

// DragEnter marks a drag over the drop target.
func (c *Controller) DragEnter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragActive = true
}

// DragLeave clears the drag marker without touching the selection.
func (c *Controller) DragLeave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragActive = false
}

// DragActive reports whether a drag is over the drop target.
func (c *Controller) DragActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragActive
}

// Drop ends a drag and selects the dropped file.
func (c *Controller) Drop(candidate types.SelectedFile) selection.Decision {
	c.DragLeave()
	return c.Select(candidate)
}

// ClearFile removes the selection.
func (c *Controller) ClearFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = nil
}

// Submit validates the selection and toggles, performs the conversion, and
// saves the archive. It blocks until the attempt reaches a terminal state and
// returns that state.
//
// Local problems (no file, invalid options) return a *types.ValidationError
// and leave the session idle with no network call made. A conversion failure
// returns the transport error with the state set to failed. A save failure
// after a successful conversion is only a warning: the state is succeeded and
// the error is nil.
func (c *Controller) Submit(ctx context.Context, toggles options.Toggles) (types.SubmissionState, error) {
	c.mu.Lock()
	if c.busyLocked() {
		st := c.state
		c.mu.Unlock()
		return st, ErrBusy
	}
	if c.file == nil {
		st := c.rejectLocked(MsgNoFile)
		c.mu.Unlock()
		return st, &types.ValidationError{Message: MsgNoFile}
	}

	c.stopResetLocked()
	c.generation++
	gen := c.generation
	c.setLocked(types.SubmissionState{
		Phase:   types.PhaseValidating,
		Message: "Validating options",
	})

	cfg, err := options.Build(toggles)
	if err != nil {
		st := c.rejectLocked(err.Error())
		c.mu.Unlock()
		return st, err
	}

	file := *c.file
	attempt := history.Attempt{
		ID:        c.newID(),
		FileName:  file.Name,
		FileSize:  file.Size,
		Endpoint:  client.EndpointFor(cfg),
		Config:    configJSON(cfg),
		StartedAt: time.Now(),
	}
	c.setLocked(types.SubmissionState{
		Phase:     types.PhaseSubmitting,
		AttemptID: attempt.ID,
		Message:   fmt.Sprintf("Processing %s and generating flashcards...", file.Name),
	})
	c.mu.Unlock()

	handle := c.progress.Start(ctx, func(p types.Progress) { c.applyProgress(gen, p) })
	payload, convErr := c.converter.Submit(ctx, file, cfg)
	handle.Cancel()

	var st types.SubmissionState
	if convErr != nil {
		st = c.fail(gen, convErr)
	} else {
		st = c.succeed(gen, payload, cfg)
	}

	attempt.FinishedAt = time.Now()
	attempt.Outcome = st.Phase
	attempt.Message = st.Message
	attempt.DownloadPath = st.DownloadPath
	attempt.Warning = st.Warning
	if st.Report != nil {
		attempt.Category = st.Report.Category
		attempt.Message = st.Report.RawMessage
	}
	c.record(attempt)

	return st, convErr
}

// applyProgress applies a simulator update if it belongs to the current
// attempt. Updates never lower the percentage.
func (c *Controller) applyProgress(gen uint64, p types.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state.Phase != types.PhaseSubmitting {
		return
	}
	next := c.state
	next.Progress = types.Progress{
		Percent: max(p.Percent, c.state.Progress.Percent),
		Label:   p.Label,
	}
	c.setLocked(next)
}

func (c *Controller) succeed(gen uint64, payload []byte, cfg types.ProcessingConfiguration) types.SubmissionState {
	c.mu.Lock()
	next := c.state
	next.Progress = types.Progress{Percent: 100, Label: "Downloading your flashcards"}
	c.setLocked(next)
	c.mu.Unlock()

	path, dlErr := c.dispatcher.Trigger(payload, ArchiveName(cfg))

	c.mu.Lock()
	defer c.mu.Unlock()

	next = c.state
	next.Phase = types.PhaseSucceeded
	next.Progress = types.Progress{Percent: 100, Label: "Complete"}
	next.Report = nil
	if dlErr != nil {
		next.Message = "Package generated successfully, but it could not be saved."
		next.Warning = dlErr.Error()
		c.logger.Warn("download failed", zap.String("attempt", next.AttemptID), zap.Error(dlErr))
	} else {
		next.DownloadPath = path
		next.Message = fmt.Sprintf("Package generated successfully! Your flashcards have been saved to %s", path)
	}
	c.setLocked(next)
	c.scheduleResetLocked(gen)
	return c.state
}

func (c *Controller) fail(gen uint64, err error) types.SubmissionState {
	report := classify.Classify(err)

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state
	next.Phase = types.PhaseFailed
	next.Report = &report
	next.Message = fmt.Sprintf("Error generating package: %s", report.RawMessage)
	c.setLocked(next)
	c.scheduleResetLocked(gen)
	return c.state
}

// rejectLocked returns the session to idle with a message, without an attempt.
func (c *Controller) rejectLocked(msg string) types.SubmissionState {
	c.setLocked(types.SubmissionState{Phase: types.PhaseIdle, Message: msg})
	return c.state
}

func (c *Controller) busyLocked() bool {
	return c.state.Phase == types.PhaseSubmitting || c.state.Phase == types.PhaseValidating
}

func (c *Controller) setLocked(next types.SubmissionState) {
	prev := c.state.Phase
	c.state = next
	if prev != next.Phase {
		c.logger.Info("state changed",
			zap.String("from", string(prev)),
			zap.String("to", string(next.Phase)),
			zap.String("attempt", next.AttemptID))
	} else if next.Phase == types.PhaseSubmitting {
		c.logger.Debug("progress",
			zap.Int("percent", next.Progress.Percent),
			zap.String("label", next.Progress.Label))
	}
	if c.onChange != nil {
		c.onChange(next)
	}
}

func (c *Controller) scheduleResetLocked(gen uint64) {
	if c.resetDelay < 0 {
		return
	}
	c.stopResetLocked()
	c.resetTimer = time.AfterFunc(c.resetDelay, func() { c.reset(gen) })
}

func (c *Controller) stopResetLocked() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}

// reset clears a terminal state from attempt gen. The selected file is kept.
func (c *Controller) reset(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || !c.state.Phase.Terminal() {
		return
	}
	c.resetTimer = nil
	c.setLocked(types.SubmissionState{Phase: types.PhaseIdle})
}

// Close stops the pending auto-reset, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopResetLocked()
}

func (c *Controller) record(a history.Attempt) {
	if c.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.recorder.Record(ctx, a); err != nil {
		c.logger.Warn("recording attempt failed", zap.String("attempt", a.ID), zap.Error(err))
	}
}

// ArchiveName returns the file name for a received archive.
func ArchiveName(cfg types.ProcessingConfiguration) string {
	if cfg.Comprehensive {
		return download.CompletePackageArchive
	}
	return download.DeckArchive
}

func configJSON(cfg types.ProcessingConfiguration) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	return string(data)
}
