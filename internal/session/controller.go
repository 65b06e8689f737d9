package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/facescan/internal/auth"
	"github.com/desertthunder/facescan/internal/images"
	"github.com/desertthunder/facescan/internal/services"
	"github.com/desertthunder/facescan/internal/shared"
)

// Request is the payload dispatched for an accepted trigger.
type Request = services.ScanRequest

// Attempt describes a finished scan, as handed to a [Recorder].
type Attempt struct {
	DriveLink   string
	Status      Status
	Matches     []string
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Recorder receives every finished scan attempt.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Service services.ScanService
	// Recorder is optional; its errors are logged and ignored.
	Recorder Recorder
	Logger   *log.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Controller owns one session [State] and serializes its transitions.
type Controller struct {
	mu        sync.Mutex
	state     State
	probed    bool
	startedAt time.Time
	// deferred holds a credential from a login that completed during a scan.
	deferred auth.Credential

	service  services.ScanService
	recorder Recorder
	logger   *log.Logger
	now      func() time.Time
}

// NewController creates a controller in the startup state.
func NewController(opts ControllerOpts) *Controller {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		state:    NewState(),
		service:  opts.Service,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Probe queries backend health the first time it is called and returns the cached result afterwards.
func (c *Controller) Probe(ctx context.Context) bool {
	c.mu.Lock()
	if c.probed {
		healthy := c.state.BackendHealthy
		c.mu.Unlock()
		return healthy
	}
	c.probed = true
	c.mu.Unlock()

	healthy := c.service.Health(ctx)
	c.SetHealth(healthy)
	return healthy
}

// SetHealth records a probe result obtained elsewhere (the TUI runs the probe as a command).
func (c *Controller) SetHealth(healthy bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probed = true
	c.state = c.state.WithHealth(healthy)
	if !healthy {
		c.logger.Warn("backend is not responding, scanning disabled")
	}
	return c.state.clone()
}

// SetDriveLink replaces the drive link. Refused while a scan is in flight.
func (c *Controller) SetDriveLink(link string) (State, error) {
	return c.update(func(s State) State { return s.WithDriveLink(link) })
}

// SetImage encodes f and stores it. On failure the previous image is kept and the error message is shown.
func (c *Controller) SetImage(f images.File) (State, error) {
	if st := c.Snapshot(); st.Status == InFlight {
		return st, ErrScanInFlight
	}

	enc, err := images.Encode(f)
	if err != nil {
		c.logger.Debug("reference image rejected", "file", f.Name, "err", err)
		st, uerr := c.update(func(s State) State { return s.WithInputError(images.Message(err)) })
		if uerr != nil {
			return st, uerr
		}
		return st, err
	}

	c.logger.Debug("reference image set", "file", enc.Name, "type", enc.MediaType, "size", enc.Size)
	return c.update(func(s State) State { return s.WithImage(enc) })
}

// SetCredential stores the credential produced by a successful login.
//
// A login that completes while a scan is in flight is not lost: the credential is held and applied when the scan
// finishes, without touching its outcome.
func (c *Controller) SetCredential(cred auth.Credential) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == InFlight {
		c.deferred = cred
		c.logger.Info("sign-in completed during scan, applying it when the scan finishes")
		return c.state.clone()
	}
	c.deferred = auth.Credential{}
	c.state = c.state.WithCredential(cred)
	return c.state.clone()
}

// AuthFailed reports a failed login.
func (c *Controller) AuthFailed() (State, error) {
	return c.InputError(MsgAuthFailed)
}

// InputError shows msg for a problem with user input found outside the controller, such as an unreadable file.
func (c *Controller) InputError(msg string) (State, error) {
	return c.update(func(s State) State { return s.WithInputError(msg) })
}

func (c *Controller) update(fn func(State) State) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == InFlight {
		return c.state.clone(), ErrScanInFlight
	}
	c.state = fn(c.state)
	return c.state.clone(), nil
}

// Begin handles a scan trigger.
//
// It returns [ErrBackendUnavailable] or [ErrScanInFlight] without touching the state, a [*ValidationError] after
// moving to Idle with the message set, or the request to dispatch after moving to InFlight.
func (c *Controller) Begin() (Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status == InFlight {
		return Request{}, ErrScanInFlight
	}
	if !c.state.BackendHealthy {
		return Request{}, ErrBackendUnavailable
	}

	next, err := c.state.Validate()
	c.state = next
	if err != nil {
		c.logger.Debug("scan trigger rejected", "err", err)
		return Request{}, err
	}

	c.startedAt = c.now()
	c.logger.Info("scan started", "drive_link", next.DriveLink)
	return Request{
		DriveLink:      next.DriveLink,
		ReferenceImage: next.Image.DataURI,
		Credentials:    next.Credential,
	}, nil
}

// Finish applies the outcome of the request returned by [Controller.Begin]. It is a no-op unless a scan is in flight.
func (c *Controller) Finish(result *services.ScanResult, err error) State {
	return c.finish(context.Background(), result, err)
}

func (c *Controller) finish(ctx context.Context, result *services.ScanResult, err error) State {
	c.mu.Lock()
	if c.state.Status != InFlight {
		st := c.state.clone()
		c.mu.Unlock()
		return st
	}

	switch {
	case err != nil:
		c.state = c.state.Fail(services.Message(err))
		c.logger.Error("scan failed", "err", err)
	case result == nil:
		c.state = c.state.Fail(services.DefaultScanError)
		c.logger.Error("scan failed", "err", "empty result")
	default:
		c.state = c.state.Succeed(result.MatchingImages)
		c.logger.Info("scan succeeded", "matches", len(result.MatchingImages))
	}
	if !c.deferred.IsZero() {
		c.state.Credential = c.deferred
		c.deferred = auth.Credential{}
	}

	st := c.state.clone()
	attempt := Attempt{
		DriveLink:   st.DriveLink,
		Status:      st.Status,
		Matches:     append([]string(nil), st.Results...),
		Error:       st.Error,
		StartedAt:   c.startedAt,
		CompletedAt: c.now(),
	}
	c.mu.Unlock()

	if c.recorder != nil {
		if rerr := c.recorder.Record(ctx, attempt); rerr != nil {
			c.logger.Warn("failed to record scan", "err", rerr)
		}
	}
	return st
}

// Scan runs a full trigger: [Controller.Begin], the request, then [Controller.Finish].
//
// The returned error is only set when the trigger was refused or invalid. A failed request is reported through the
// Failed state.
func (c *Controller) Scan(ctx context.Context) (State, error) {
	req, err := c.Begin()
	if err != nil {
		return c.Snapshot(), err
	}
	return c.Dispatch(ctx, req), nil
}

// Dispatch sends a request obtained from [Controller.Begin] and applies its outcome.
func (c *Controller) Dispatch(ctx context.Context, req Request) State {
	result, err := c.service.Scan(ctx, req)
	return c.finish(ctx, result, err)
}
