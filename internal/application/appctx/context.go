// Package appctx holds the application state a console session works with:
// the user profile, current workspace, app list, custom plans and payment
// settings. A Context is created once, hydrated with Init and passed to the
// components that need it.
package appctx

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"custom-billing/internal/domain"
	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/adapter"
)

const (
	appsPage  = 1
	appsLimit = 30

	developmentEnv = "DEVELOPMENT"
)

func initialWorkspace() model.Workspace {
	return model.Workspace{Role: model.RoleNormal, Providers: []any{}}
}

// Context is safe for concurrent use.
type Context struct {
	api adapter.ConsoleAPI
	log zerolog.Logger
	dev bool

	mu        sync.RWMutex
	apps      []model.App
	profile   *model.UserProfile
	version   model.VersionInfo
	workspace model.Workspace
	plans     []*model.Plan
	settings  model.PublicPaymentSettings
	features  model.FeatureLimits
	closed    bool
}

// New returns an un-hydrated context holding initial values. In development
// mode the reported environment is always DEVELOPMENT.
func New(api adapter.ConsoleAPI, logger *zerolog.Logger, dev bool) *Context {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "appctx").Logger()
	}
	return &Context{
		api:       api,
		log:       log,
		dev:       dev,
		apps:      []model.App{},
		workspace: initialWorkspace(),
		plans:     []*model.Plan{},
	}
}

// Init fetches everything concurrently. The user profile and the app list
// are required; other resources keep their initial values when their fetch
// fails.
func (c *Context) Init(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.loadProfile(gctx) })
	g.Go(func() error { return c.loadApps(gctx) })
	g.Go(func() error {
		c.optional("workspace", c.loadWorkspace(gctx))
		return nil
	})
	g.Go(func() error {
		c.optional("custom plans", c.loadPlans(gctx))
		return nil
	})
	g.Go(func() error {
		c.optional("payment settings", c.loadSettings(gctx))
		return nil
	})
	g.Go(func() error {
		c.optional("features", c.loadFeatures(gctx))
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("init app context: %w", err)
	}
	return nil
}

// Reload re-runs Init.
func (c *Context) Reload(ctx context.Context) error {
	return c.Init(ctx)
}

// Close marks the context closed; later fetches return domain.ErrClosed.
func (c *Context) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// MutateUserProfile re-fetches the profile and the version info.
func (c *Context) MutateUserProfile(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.loadProfile(ctx)
}

// RefreshUserProfile is MutateUserProfile for the checkout controller.
func (c *Context) RefreshUserProfile(ctx context.Context) error {
	return c.MutateUserProfile(ctx)
}

func (c *Context) MutateWorkspace(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.loadWorkspace(ctx)
}

func (c *Context) MutateApps(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.loadApps(ctx)
}

func (c *Context) loadProfile(ctx context.Context) error {
	resp, err := c.api.UserProfile(ctx)
	if err != nil {
		return fmt.Errorf("fetch user profile: %w", err)
	}
	env := resp.Env
	if c.dev {
		env = developmentEnv
	}

	version := model.VersionInfo{CurrentVersion: resp.Version, CurrentEnv: env}
	if v, err := c.api.Version(ctx, resp.Version); err != nil {
		c.optional("version", err)
	} else {
		version = *v
		version.CurrentVersion = resp.Version
		version.LatestVersion = v.Version
		version.CurrentEnv = env
	}

	profile := resp.Profile
	c.mu.Lock()
	c.profile = &profile
	c.version = version
	c.mu.Unlock()
	return nil
}

func (c *Context) loadApps(ctx context.Context) error {
	list, err := c.api.Apps(ctx, appsPage, appsLimit, "")
	if err != nil {
		return fmt.Errorf("fetch apps: %w", err)
	}
	apps := list.Data
	if apps == nil {
		apps = []model.App{}
	}
	c.mu.Lock()
	c.apps = apps
	c.mu.Unlock()
	return nil
}

func (c *Context) loadWorkspace(ctx context.Context) error {
	ws, err := c.api.CurrentWorkspace(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.workspace = *ws
	c.mu.Unlock()
	return nil
}

func (c *Context) loadPlans(ctx context.Context) error {
	plans, err := c.api.CustomPlans(ctx)
	if err != nil {
		return err
	}
	if plans == nil {
		plans = []*model.Plan{}
	}
	c.mu.Lock()
	c.plans = plans
	c.mu.Unlock()
	return nil
}

func (c *Context) loadSettings(ctx context.Context) error {
	s, err := c.api.PaymentSettings(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.settings = *s
	c.mu.Unlock()
	return nil
}

func (c *Context) loadFeatures(ctx context.Context) error {
	f, err := c.api.Features(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.features = *f
	c.mu.Unlock()
	return nil
}

func (c *Context) optional(what string, err error) {
	if err != nil {
		c.log.Warn().Err(err).Str("resource", what).Msg("fetch failed, keeping previous value")
	}
}

func (c *Context) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return domain.ErrClosed
	}
	return nil
}

// Ready reports whether the required resources have been loaded.
func (c *Context) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile != nil
}

func (c *Context) Apps() []model.App {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.App(nil), c.apps...)
}

// UserProfile returns a copy of the profile, or the zero profile before Init.
func (c *Context) UserProfile() model.UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return model.UserProfile{}
	}
	return *c.profile
}

func (c *Context) Version() model.VersionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Context) Workspace() model.Workspace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workspace
}

func (c *Context) CustomPlans() []*model.Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*model.Plan(nil), c.plans...)
}

func (c *Context) PaymentSettings() model.PublicPaymentSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func (c *Context) Features() model.FeatureLimits {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.features
}

// CurrentPlanID is the custom plan on the user's profile.
func (c *Context) CurrentPlanID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return ""
	}
	return c.profile.CustomPlanID
}

func (c *Context) role() model.WorkspaceRole {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workspace.Role
}

// IsManager is true for owners and admins.
func (c *Context) IsManager() bool {
	r := c.role()
	return r == model.RoleOwner || r == model.RoleAdmin
}

func (c *Context) IsOwner() bool { return c.role() == model.RoleOwner }

// IsEditor is true for owners, admins and editors.
func (c *Context) IsEditor() bool {
	r := c.role()
	return r == model.RoleOwner || r == model.RoleAdmin || r == model.RoleEditor
}

func (c *Context) IsDatasetOperator() bool { return c.role() == model.RoleDatasetOperator }
