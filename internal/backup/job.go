package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"discbackup/internal/config"
	"discbackup/internal/fileutil"
	"discbackup/internal/logging"
	"discbackup/internal/preflight"
	"discbackup/internal/services"
	"discbackup/internal/services/makemkv"
	"discbackup/internal/services/sevenzip"
	"discbackup/internal/textutil"
)

// State is the job lifecycle position.
type State int32

const (
	StateSpawning State = iota
	StateScanning
	StateCopying
	StateFinalizing
	StateSucceeded
	StatePartialSuccess
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateScanning:
		return "scanning"
	case StateCopying:
		return "copying"
	case StateFinalizing:
		return "finalizing"
	case StateSucceeded:
		return "succeeded"
	case StatePartialSuccess:
		return "partial_success"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s >= StateSucceeded
}

// Observer receives job events. Calls come from the goroutine running Run,
// in order, and exactly one terminal OnState is delivered per run after the
// scratch directory has been cleaned up.
type Observer interface {
	OnProgress(ProgressSnapshot)
	OnLog(line string)
	OnState(State)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Progress func(ProgressSnapshot)
	Log      func(string)
	State    func(State)
}

func (o ObserverFuncs) OnProgress(s ProgressSnapshot) {
	if o.Progress != nil {
		o.Progress(s)
	}
}

func (o ObserverFuncs) OnLog(line string) {
	if o.Log != nil {
		o.Log(line)
	}
}

func (o ObserverFuncs) OnState(s State) {
	if o.State != nil {
		o.State(s)
	}
}

// Ripper runs one makemkvcon backup; *makemkv.Client satisfies it.
type Ripper interface {
	Backup(ctx context.Context, args makemkv.BackupArgs, onStdout, onStderr func(string)) error
}

// Outcome is what a Recorder receives when a job ends.
type Outcome struct {
	JobID          string
	Name           string
	State          State
	Mode           string
	Profile        string
	ExpectedBytes  int64
	Result         *Result
	Err            error
	TranscriptPath string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Recorder persists terminal outcomes.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
}

// JobOptions are the per-job choices a caller can make. Zero values fall back
// to configuration.
type JobOptions struct {
	// Mode is config.ModeFull or config.ModeSmart; empty uses makemkv.extraction_mode.
	Mode string
	// DiscType selects a profile through makemkv.disc_type_profiles when
	// Profile is empty.
	DiscType string
	// Profile names a performance profile; empty falls back to the disc type
	// mapping, then makemkv.profile.
	Profile string
	// MinTitleMinutes overrides makemkv.min_title_minutes in smart mode.
	MinTitleMinutes int
	// Overrides adjusts individual fields of the resolved profile.
	Overrides config.ProfileOverride
}

// JobSpec identifies the disc to back up.
type JobSpec struct {
	// Name is sanitized into the scratch and backup directory name.
	Name string
	// SourceIndex is the MakeMKV drive index (disc:<index>).
	SourceIndex int
	// ExpectedBytes is the disc size; 0 means unknown.
	ExpectedBytes int64
	Options       JobOptions
}

// Option configures a Job.
type Option func(*Job)

// WithRipper replaces the makemkvcon client.
func WithRipper(r Ripper) Option {
	return func(j *Job) {
		if r != nil {
			j.ripper = r
		}
	}
}

// WithExtractor replaces the 7z extractor used for single-file formats.
func WithExtractor(e Extractor) Option {
	return func(j *Job) {
		if e != nil {
			j.extractor = e
		}
	}
}

// WithObserver registers the event observer.
func WithObserver(o Observer) Option {
	return func(j *Job) {
		if o != nil {
			j.observer = o
		}
	}
}

// WithRecorder registers a terminal outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(j *Job) {
		j.recorder = r
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithDiskUsage replaces the free space lookup used by the preflight.
func WithDiskUsage(fn preflight.UsageFunc) Option {
	return func(j *Job) {
		if fn != nil {
			j.diskUsage = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

// WithID sets the job id instead of a random UUID.
func WithID(id string) Option {
	return func(j *Job) {
		if id = strings.TrimSpace(id); id != "" {
			j.id = id
		}
	}
}

// Job backs up one disc. A Job runs once; Cancel may be called from any
// goroutine.
type Job struct {
	cfg              *config.Config
	spec             JobSpec
	id               string
	name             string
	mode             string
	profile          config.PerformanceProfile
	minLengthSeconds int
	scratch          string
	final            string
	lockPath         string

	ripper    Ripper
	extractor Extractor
	observer  Observer
	recorder  Recorder
	logger    *slog.Logger
	diskUsage preflight.UsageFunc
	now       func() time.Time

	state           atomic.Int32
	started         atomic.Bool
	cancelRequested atomic.Bool
	mu              sync.Mutex
	cancel          context.CancelCauseFunc
}

// NewJob validates spec against cfg and resolves its profile and paths.
func NewJob(cfg *config.Config, spec JobSpec, opts ...Option) (*Job, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "backup", "new job", "config required", nil)
	}
	name := textutil.SanitizeFileName(spec.Name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "backup", "new job", "disc name required", nil)
	}
	if spec.ExpectedBytes < 0 {
		return nil, services.Wrap(services.ErrValidation, "backup", "new job", "expected size must not be negative", nil)
	}
	if spec.SourceIndex < 0 {
		return nil, services.Wrap(services.ErrValidation, "backup", "new job", "source index must not be negative", nil)
	}
	mode := strings.ToLower(strings.TrimSpace(spec.Options.Mode))
	if mode == "" {
		mode = cfg.MakeMKV.ExtractionMode
	}
	if mode != config.ModeFull && mode != config.ModeSmart {
		return nil, services.Wrap(services.ErrValidation, "backup", "new job", fmt.Sprintf("unknown extraction mode %q", mode), nil)
	}
	profile, err := cfg.ProfileFor(spec.Options.Profile, spec.Options.DiscType)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "backup", "new job", "resolve profile", err)
	}
	profile, err = spec.Options.Overrides.Apply(profile)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "backup", "new job", "apply profile overrides", err)
	}

	j := &Job{
		cfg:      cfg,
		spec:     spec,
		id:       uuid.NewString(),
		name:     name,
		mode:     mode,
		profile:  profile,
		scratch:  cfg.ScratchPath(name),
		final:    cfg.BackupPath(name),
		lockPath: filepath.Join(cfg.TempDir(), "."+name+".lock"),
		observer: ObserverFuncs{},
		now:      time.Now,
	}
	if mode == config.ModeSmart {
		minutes := spec.Options.MinTitleMinutes
		if minutes <= 0 {
			minutes = cfg.MakeMKV.MinTitleMinutes
		}
		j.minLengthSeconds = minutes * 60
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.ripper == nil {
		client, err := makemkv.New(cfg.MakeMKV.Binary)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "backup", "new job", "makemkv client", err)
		}
		j.ripper = client
	}
	if j.extractor == nil {
		if extractor, err := sevenzip.New(cfg.Extract.SevenZipBinary); err == nil {
			j.extractor = extractor
		}
	}
	return j, nil
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Name returns the sanitized disc name.
func (j *Job) Name() string { return j.name }

// ScratchPath returns where makemkvcon writes.
func (j *Job) ScratchPath() string { return j.scratch }

// FinalPath returns where the finished backup lands.
func (j *Job) FinalPath() string { return j.final }

// Mode returns the resolved extraction mode.
func (j *Job) Mode() string { return j.mode }

// Profile returns the resolved performance profile.
func (j *Job) Profile() config.PerformanceProfile { return j.profile }

// State returns the current state. Safe for concurrent use.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Cancel stops the job. The makemkvcon process receives SIGTERM and Run
// returns ErrCancelled once the scratch directory is gone. Cancelling before
// Run starts makes Run return immediately.
func (j *Job) Cancel() {
	j.cancelRequested.Store(true)
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel(errJobCancelled)
	}
}

// Run executes the job and blocks until it reaches a terminal state. A nil
// error means success or partial success; see Result.PartialSuccess.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	if !j.started.CompareAndSwap(false, true) {
		return nil, services.Wrap(services.ErrValidation, "backup", "run", "job already started", nil)
	}
	ctx = services.WithDisc(services.WithJobID(ctx, j.id), j.name)
	jobCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	j.mu.Lock()
	j.cancel = cancel
	j.mu.Unlock()
	if j.cancelRequested.Load() {
		cancel(errJobCancelled)
	}

	r := &jobRun{
		job:       j,
		logger:    j.runLogger(ctx, j.logger),
		estimator: NewEstimator(j.spec.ExpectedBytes),
		sampler:   logging.NewProgressSampler(5),
		startedAt: j.now(),
	}
	j.observer.OnState(StateSpawning)
	r.logger.Info("backup job starting",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("mode", j.mode),
		logging.String("profile", j.profile.Name),
		logging.Int64("expected_bytes", j.spec.ExpectedBytes),
		logging.String("scratch_path", j.scratch),
		logging.String("final_path", j.final),
	)

	result, err := r.execute(jobCtx)
	r.finish(ctx, result, err)
	return result, err
}

// runLogger binds the job fields last so every tee member carries them.
func (j *Job) runLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	return logging.WithContext(ctx, logging.NewComponentLogger(base, "backup"))
}

func (j *Job) setState(s State) {
	if State(j.state.Swap(int32(s))) == s {
		return
	}
	j.observer.OnState(s)
}

func (j *Job) cancelledError(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, errJobCancelled) {
		return services.Wrap(ErrCancelled, "backup", "run", "cancelled by request", nil)
	}
	return services.Wrap(ErrCancelled, "backup", "run", "caller context done", cause)
}

const (
	streamStdout = "stdout"
	streamStderr = "stderr"
	stderrTail   = 5
)

type streamLine struct {
	stream string
	text   string
}

type titleSummary struct {
	saved  int
	failed int
}

// jobRun holds the private state of one Run. Only the Run goroutine touches it.
type jobRun struct {
	job        *Job
	logger     *slog.Logger
	estimator  *Estimator
	sampler    *logging.ProgressSampler
	tracker    PhaseTracker
	transcript *logging.Transcript
	untee      *slog.Logger
	startedAt  time.Time

	records []ErrorRecord
	summary *titleSummary
	stderr  []string
	abort   context.CancelCauseFunc
}

func (r *jobRun) execute(ctx context.Context) (*Result, error) {
	j := r.job
	if ctx.Err() != nil {
		return nil, j.cancelledError(ctx)
	}
	if err := os.MkdirAll(j.cfg.TempDir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "backup", "prepare", "create temp directory", err)
	}

	lock := flock.New(j.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "backup", "lock scratch", j.lockPath, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrValidation, "backup", "lock scratch",
			fmt.Sprintf("scratch path %s is in use by another job", j.scratch), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release scratch lock", logging.String("lock_path", j.lockPath), logging.Error(err))
		}
	}()

	probe := NewProbe(j.cfg)
	report, err := probe.Check(j.name, j.spec.ExpectedBytes)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "backup", "probe", "inspect existing backup", err)
	}
	if report.Status == StatusComplete {
		return r.alreadyComplete(report), nil
	}
	if len(report.Leftovers) > 0 {
		r.logger.Info("removing leftovers from a previous attempt",
			logging.String(logging.FieldEventType, "leftover_cleanup"),
			logging.String("status", string(report.Status)),
			logging.Int64("leftover_bytes", report.SizeBytes),
			logging.Int("leftover_paths", len(report.Leftovers)),
		)
		if err := probe.Clean(report); err != nil {
			return nil, services.Wrap(services.ErrTransient, "backup", "prepare", "remove leftovers", err)
		}
	}
	if err := os.RemoveAll(j.scratch); err != nil {
		return nil, services.Wrap(services.ErrTransient, "backup", "prepare", "remove stale scratch", err)
	}
	if err := r.checkFreeSpace(); err != nil {
		return nil, err
	}

	r.openTranscript(ctx)

	if err := r.rip(ctx); err != nil {
		r.removeScratch()
		return nil, err
	}
	return r.finalize(ctx)
}

func (r *jobRun) checkFreeSpace() error {
	j := r.job
	if !j.cfg.Extract.CheckFreeSpace || j.spec.ExpectedBytes <= 0 {
		return nil
	}
	results := preflight.CheckFreeSpace(j.diskUsage,
		preflight.SpaceRequirement{Name: "scratch", Path: j.scratch, Bytes: j.spec.ExpectedBytes},
		preflight.SpaceRequirement{Name: "backup", Path: j.final, Bytes: j.spec.ExpectedBytes},
	)
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, f := range failed {
		details = append(details, f.Name+": "+f.Detail)
	}
	return services.Wrap(services.ErrValidation, "backup", "preflight",
		"insufficient free space: "+strings.Join(details, "; "), nil)
}

func (r *jobRun) openTranscript(ctx context.Context) {
	j := r.job
	if !j.cfg.Logging.Transcripts {
		return
	}
	transcript, err := logging.OpenTranscript(j.cfg.TranscriptDir(), j.name+"-"+j.id)
	if err != nil {
		logging.WarnWithContext(r.logger, "transcript unavailable", "transcript_open",
			logging.Error(err),
			logging.String(logging.FieldImpact, "raw makemkvcon output will not be kept"),
		)
		return
	}
	r.transcript = transcript
	r.untee = r.logger
	r.logger = j.runLogger(ctx, logging.TeeLogger(j.logger, transcript.Handler(slog.LevelInfo)))
}

// closeTranscript detaches the transcript from the run logger and closes it.
func (r *jobRun) closeTranscript() {
	if r.transcript == nil {
		return
	}
	r.logger = r.untee
	if err := r.transcript.Close(); err != nil {
		r.logger.Warn("failed to close transcript", logging.Error(err))
		return
	}
	r.logger.Debug("transcript written",
		logging.String("transcript", r.transcript.Path()),
		logging.Int("lines", r.transcript.Lines()),
	)
}

// rip spawns makemkvcon and runs the event loop until the process exits.
func (r *jobRun) rip(ctx context.Context) error {
	j := r.job
	abortCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)
	r.abort = abort
	ripCtx := abortCtx
	if timeout := j.profile.Timeout(); timeout > 0 {
		var stop context.CancelFunc
		ripCtx, stop = context.WithTimeoutCause(abortCtx, timeout, errRipTimeout)
		defer stop()
	}

	args := makemkv.BackupArgs{
		SourceIndex:      j.spec.SourceIndex,
		Destination:      j.scratch,
		CacheMB:          j.profile.CacheMB,
		SplitSizeMB:      j.profile.SplitSizeMB,
		MinLengthSeconds: j.minLengthSeconds,
	}
	r.logger.Info("launching makemkv backup",
		logging.String(logging.FieldEventType, "rip_start"),
		logging.String("source", args.Source()),
		logging.String("args", strings.Join(makemkv.BuildBackupArgs(args), " ")),
	)

	lines := make(chan streamLine)
	done := make(chan error, 1)
	forward := func(stream string) func(string) {
		return func(text string) {
			lines <- streamLine{stream: stream, text: text}
		}
	}
	go func() {
		done <- j.ripper.Backup(ripCtx, args, forward(streamStdout), forward(streamStderr))
	}()

	runErr := r.loop(lines, done)
	return r.ripOutcome(ctx, ripCtx, runErr)
}

// loop is the single event loop of a rip. Output lines, the fallback timer,
// the poll ticker and the exit notification are all handled here.
func (r *jobRun) loop(lines <-chan streamLine, done <-chan error) error {
	cfg := r.job.cfg
	fallback := time.NewTimer(cfg.FallbackGrace())
	defer fallback.Stop()
	var ticker *time.Ticker
	var tick <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()
	startPolling := func(trigger string) {
		if ticker != nil {
			return
		}
		fallback.Stop()
		ticker = time.NewTicker(cfg.PollInterval())
		tick = ticker.C
		r.logger.Debug("scratch polling started", logging.String("trigger", trigger))
	}

	for {
		select {
		case line := <-lines:
			r.handleLine(line)
			if r.tracker.Copying() {
				startPolling("copy_phase")
			}
		case <-fallback.C:
			r.enterScanning()
			startPolling("fallback")
		case <-tick:
			r.poll()
		case err := <-done:
			return err
		}
	}
}

func (r *jobRun) ripOutcome(ctx, ripCtx context.Context, runErr error) error {
	j := r.job
	exit := makemkv.ExitStatus(runErr)
	if fatal := r.fatalRecords(); len(fatal) > 0 {
		return &RipError{Exit: exit, Records: r.records, Stderr: r.stderr}
	}
	if errors.Is(context.Cause(ripCtx), errRipTimeout) && ctx.Err() == nil {
		return &RipError{Exit: exit, Records: r.records, Stderr: r.stderr,
			Err: services.Wrap(services.ErrTimeout, "backup", "rip",
				fmt.Sprintf("exceeded %s deadline of profile %s", j.profile.Timeout(), j.profile.Name), errRipTimeout)}
	}
	if ctx.Err() != nil {
		return j.cancelledError(ctx)
	}
	switch exit.Kind {
	case makemkv.ExitSignaled:
		return services.Wrap(ErrCancelled, "backup", "rip", "makemkvcon terminated by "+exit.Signal, runErr)
	case makemkv.ExitCode, makemkv.ExitSpawnFailed:
		return &RipError{Exit: exit, Records: r.records, Stderr: r.stderr, Err: runErr}
	}
	if _, err := os.Stat(j.scratch); err != nil {
		return &RipError{Exit: exit, Records: r.records, Stderr: r.stderr, Err: errNoOutput}
	}
	return nil
}

func (r *jobRun) fatalRecords() []ErrorRecord {
	var fatal []ErrorRecord
	for _, rec := range r.records {
		if rec.Severity == SeverityFatal {
			fatal = append(fatal, rec)
		}
	}
	return fatal
}

func (r *jobRun) handleLine(line streamLine) {
	if err := r.transcript.WriteLine(line.stream, line.text); err != nil {
		r.logger.Debug("transcript write failed", logging.Error(err))
	}
	r.enterScanning()
	if line.stream == streamStderr {
		r.handleStderr(line.text)
		return
	}
	ev, ok := makemkv.ParseLine(line.text)
	if !ok {
		return
	}
	switch ev := ev.(type) {
	case makemkv.ProgressTitle:
		r.job.observer.OnLog(ev.Text)
		if r.tracker.Observe(ev) {
			r.enterCopying()
		}
	case makemkv.ProgressItem:
		r.logger.Debug("makemkv task", logging.String("task", ev.Text))
	case makemkv.ProgressValue:
		if !r.tracker.Copying() {
			r.logger.Debug("discarding scan phase progress",
				logging.Int("total", ev.Total),
				logging.Int("max", ev.Max),
			)
			return
		}
		r.estimator.ObserveNative(ev)
	case makemkv.Message:
		r.handleMessage(ev)
	}
}

func (r *jobRun) handleStderr(text string) {
	r.stderr = append(r.stderr, text)
	if len(r.stderr) > stderrTail {
		r.stderr = r.stderr[len(r.stderr)-stderrTail:]
	}
	r.job.observer.OnLog("ERROR: " + text)
	logging.ErrorWithContext(r.logger, "makemkvcon stderr", "makemkv_stderr", logging.String("line", text))
}

func (r *jobRun) handleMessage(msg makemkv.Message) {
	r.job.observer.OnLog(msg.Text)
	if saved, failed, ok := makemkv.MSGSummaryCounts(msg); ok {
		r.summary = &titleSummary{saved: saved, failed: failed}
		r.logger.Info("makemkv summary",
			logging.String(logging.FieldEventType, "rip_summary"),
			logging.Int("titles_saved", saved),
			logging.Int("titles_failed", failed),
		)
		return
	}
	if IsSuccessCode(msg.Code) {
		r.logger.Info("makemkv reported success", logging.Int("code", msg.Code), logging.String("message", msg.Text))
		return
	}
	if !IsErrorMessage(msg) {
		r.logger.Debug("makemkv message", logging.Int("code", msg.Code), logging.String("message", msg.Text))
		return
	}

	rec := NewErrorRecord(msg, r.job.now())
	r.records = append(r.records, rec)
	attrs := []logging.Attr{
		logging.Int(logging.FieldErrorCode, rec.Code),
		logging.String("error_kind", string(rec.Kind)),
		logging.String("message", rec.Message),
	}
	if rec.File != "" {
		attrs = append(attrs, logging.String("file", rec.File))
	}
	if rec.HasOffset {
		attrs = append(attrs, logging.Int64("offset_bytes", rec.Offset))
	}
	if hint := makemkv.Hint(rec.Code); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	if rec.Severity == SeverityFatal {
		logging.ErrorWithContext(r.logger, "fatal makemkv error, aborting rip", "makemkv_fatal", attrs...)
		r.abort(&fatalCause{record: rec})
		return
	}
	attrs = append(attrs, logging.String(logging.FieldImpact, "affected file may be incomplete"))
	logging.WarnWithContext(r.logger, "recoverable makemkv error", "makemkv_recoverable", attrs...)
}

// enterScanning marks the process as up once it produced output.
func (r *jobRun) enterScanning() {
	if r.job.State() == StateSpawning {
		r.job.setState(StateScanning)
	}
}

func (r *jobRun) enterCopying() {
	r.enterScanning()
	r.estimator.ResetNative()
	r.job.setState(StateCopying)
	r.logger.Info("copy phase started", logging.String(logging.FieldEventType, "copy_phase"))
}

func (r *jobRun) poll() {
	size, _, err := fileutil.TreeSize(r.job.scratch)
	if err != nil {
		r.logger.Debug("scratch poll failed", logging.Error(err))
		return
	}
	if r.estimator.ObservePoll(size) {
		r.report(r.estimator.Snapshot())
	}
}

func (r *jobRun) report(snap ProgressSnapshot) {
	r.job.observer.OnProgress(snap)
	if r.sampler.ShouldLog(snap.Percent, r.job.State().String()) {
		r.logger.Info("backup progress",
			logging.String(logging.FieldEventType, "progress"),
			logging.Float64(logging.FieldProgressPercent, snap.Percent),
			logging.Int64("observed_bytes", snap.BytesObserved),
			logging.Int64("expected_bytes", snap.BytesExpected),
		)
	}
}

func (r *jobRun) finalize(ctx context.Context) (*Result, error) {
	j := r.job
	j.setState(StateFinalizing)
	r.report(r.estimator.Checkpoint(CheckpointFinalizing, 0))

	pp := NewPostProcessor(j.extractor, j.profile, j.cfg.Extract.VerifyCopies, r.logger)
	fin, err := pp.Finalize(ctx, j.scratch, j.final, func() {
		r.report(r.estimator.Checkpoint(CheckpointRelocated, 0))
	})
	if err != nil {
		r.removeScratch()
		if ctx.Err() != nil {
			return nil, j.cancelledError(ctx)
		}
		return nil, err
	}

	failed := countFailedFiles(r.records)
	succeeded := max(fin.Files-failed, 0)
	if r.summary != nil {
		succeeded = r.summary.saved
		failed = r.summary.failed
	}
	result := &Result{
		JobID:              j.id,
		Name:               j.name,
		FinalPath:          fin.FinalPath,
		FinalSizeBytes:     fin.SizeBytes,
		IsSingleFileFormat: fin.Format.SingleFile(),
		Format:             fin.Format,
		PartialSuccess:     len(r.records) > 0 || failed > 0,
		ErrorRecords:       append([]ErrorRecord(nil), r.records...),
		FilesSucceeded:     succeeded,
		FilesFailed:        failed,
		StartedAt:          r.startedAt,
	}
	r.report(r.estimator.Checkpoint(CheckpointComplete, fin.SizeBytes))
	return result, nil
}

func (r *jobRun) alreadyComplete(report StatusReport) *Result {
	format, err := DetectFormat(report.Path)
	if err != nil {
		format = FormatUnknown
	}
	r.logger.Info("backup already complete",
		logging.String(logging.FieldEventType, "already_complete"),
		logging.String("final_path", report.Path),
		logging.Int64("final_bytes", report.SizeBytes),
	)
	result := &Result{
		JobID:              r.job.id,
		Name:               r.job.name,
		FinalPath:          report.Path,
		FinalSizeBytes:     report.SizeBytes,
		IsSingleFileFormat: report.SingleFile,
		Format:             format,
		FilesSucceeded:     report.Files,
		AlreadyComplete:    true,
		StartedAt:          r.startedAt,
	}
	r.report(r.estimator.Checkpoint(CheckpointComplete, report.SizeBytes))
	return result
}

func (r *jobRun) removeScratch() {
	if err := os.RemoveAll(r.job.scratch); err != nil {
		logging.ErrorWithContext(r.logger, "failed to remove scratch directory", "scratch_cleanup",
			logging.String("scratch_path", r.job.scratch),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the scratch directory manually"),
		)
	}
}

func (r *jobRun) finish(ctx context.Context, result *Result, err error) {
	j := r.job
	finishedAt := j.now()
	state := StateSucceeded
	switch {
	case errors.Is(err, ErrCancelled):
		state = StateCancelled
	case err != nil:
		state = StateFailed
	case result != nil && result.PartialSuccess:
		state = StatePartialSuccess
	}
	if result != nil {
		result.FinishedAt = finishedAt
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_finished"),
		logging.String("state", state.String()),
		logging.String("outcome", services.Outcome(err)),
		logging.Duration("elapsed", finishedAt.Sub(r.startedAt)),
	}
	if result != nil {
		attrs = append(attrs,
			logging.String("final_path", result.FinalPath),
			logging.Int64("final_bytes", result.FinalSizeBytes),
			logging.Int("files_succeeded", result.FilesSucceeded),
			logging.Int("files_failed", result.FilesFailed),
		)
	}
	switch state {
	case StateFailed:
		logging.ErrorWithContext(r.logger, "backup job failed", "job_failed", append(attrs, logging.Error(err))...)
	case StateCancelled:
		r.logger.Info("backup job cancelled", logging.Args(attrs...)...)
	case StatePartialSuccess:
		logging.WarnWithContext(r.logger, "backup job finished with recoverable errors", "job_partial",
			append(attrs, logging.String(logging.FieldImpact, "some files could not be read"))...)
	default:
		r.logger.Info("backup job finished", logging.Args(attrs...)...)
	}
	r.closeTranscript()

	if j.recorder != nil {
		outcome := Outcome{
			JobID:          j.id,
			Name:           j.name,
			State:          state,
			Mode:           j.mode,
			Profile:        j.profile.Name,
			ExpectedBytes:  j.spec.ExpectedBytes,
			Result:         result,
			Err:            err,
			TranscriptPath: r.transcript.Path(),
			StartedAt:      r.startedAt,
			FinishedAt:     finishedAt,
		}
		if recErr := j.recorder.Record(context.WithoutCancel(ctx), outcome); recErr != nil {
			r.logger.Warn("failed to record job outcome", logging.Error(recErr))
		}
	}
	j.setState(state)
}
