// Package scenario is the GitHub account walk-through: log in, check the
// account name, open a random repository and its pull requests, create a
// repository and screenshot it, log out.
//
// Steps run strictly in order against one page and share state (the picked
// repository) through Flow. There are no retries: the first failing step ends
// the run.
package scenario

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/kuitang/ghflow/internal/artifacts"
	"github.com/kuitang/ghflow/internal/config"
	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
	"github.com/kuitang/ghflow/internal/obs"
	"github.com/kuitang/ghflow/internal/urlutil"
)

// Step names, in run order.
const (
	StepLogin            = "login"
	StepValidateUser     = "validate-user"
	StepOpenRandomRepo   = "open-random-repository"
	StepOpenPullRequests = "open-pull-requests"
	StepCreateRepository = "create-repository"
	StepLogout           = "logout"
)

// Params are the inputs of one walk-through.
type Params struct {
	BaseURL        string
	Email          string
	Password       string
	Username       string
	NewRepoName    string
	ScreenshotPath string
}

// ParamsFromConfig copies the scenario inputs out of cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		BaseURL:        cfg.BaseURL,
		Email:          cfg.Email,
		Password:       cfg.Password,
		Username:       cfg.Username,
		NewRepoName:    cfg.NewRepoName,
		ScreenshotPath: cfg.ScreenshotPath,
	}
}

// ArtifactSink stores the screenshot taken after repository creation.
type ArtifactSink interface {
	Save(ctx context.Context, localPath string, data []byte) (artifacts.Artifact, error)
}

// Step is one named unit of the walk-through.
type Step struct {
	Name string
	Run  func(ctx context.Context, drv driver.Driver) error
}

// Flow holds the parameters and the state carried between steps.
type Flow struct {
	params Params
	sink   ArtifactSink
	rng    *rand.Rand

	// PickedRepository is the repository URL chosen by the random step.
	PickedRepository string
	// PickedName is the repository name shown on its page.
	PickedName string
	// Screenshot is the artifact written by the create step.
	Screenshot artifacts.Artifact
}

// Option customizes a Flow.
type Option func(*Flow)

// WithRand makes repository selection deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(f *Flow) { f.rng = rng }
}

// New returns a Flow. sink receives the screenshot.
func New(params Params, sink ArtifactSink, opts ...Option) *Flow {
	f := &Flow{params: params, sink: sink}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Root is the URL the site reports for its home page.
func (f *Flow) Root() string {
	return urlutil.Root(f.params.BaseURL)
}

// Steps returns the walk-through in order.
func (f *Flow) Steps() []Step {
	return []Step{
		{Name: StepLogin, Run: f.Login},
		{Name: StepValidateUser, Run: f.ValidateUser},
		{Name: StepOpenRandomRepo, Run: f.OpenRandomRepository},
		{Name: StepOpenPullRequests, Run: f.OpenPullRequests},
		{Name: StepCreateRepository, Run: f.CreateRepository},
		{Name: StepLogout, Run: f.Logout},
	}
}

// Login signs in through the login form and expects to land on the root.
func (f *Flow) Login(ctx context.Context, drv driver.Driver) error {
	if err := drv.Goto(ctx, f.params.BaseURL, driver.WaitNetworkIdle); err != nil {
		return err
	}
	if err := drv.Click(ctx, SignInLink); err != nil {
		return err
	}
	if err := drv.WaitFor(ctx, LoginField); err != nil {
		return err
	}
	if err := drv.Type(ctx, LoginField, f.params.Email); err != nil {
		return err
	}
	if err := drv.Type(ctx, PasswordField, f.params.Password); err != nil {
		return err
	}
	if err := drv.ClickAndWait(ctx, SignInButton, driver.WaitNetworkIdle); err != nil {
		return err
	}

	url, err := drv.URL(ctx)
	if err != nil {
		return err
	}
	obs.From(ctx).Info("accessed_url", "url", url)
	return expectEqual("url after login", url, f.Root())
}

// ValidateUser opens the account menu and checks the displayed name.
func (f *Flow) ValidateUser(ctx context.Context, drv driver.Driver) error {
	if err := drv.Click(ctx, AccountMenuButton); err != nil {
		return err
	}
	name, err := drv.Text(ctx, AccountName(f.params.Username))
	if err != nil {
		return err
	}
	return expectEqual("account name", name, f.params.Username)
}

// OpenRandomRepository lists the account's repositories and opens one at random.
func (f *Flow) OpenRandomRepository(ctx context.Context, drv driver.Driver) error {
	if err := drv.Click(ctx, RepositoriesTab(f.params.Username)); err != nil {
		return err
	}
	if err := drv.WaitFor(ctx, RepositoryItem); err != nil {
		return err
	}
	repos, err := drv.Properties(ctx, RepositoryLinks, "href")
	if err != nil {
		return err
	}
	picked, err := Pick(f.rng, repos)
	if err != nil {
		return err
	}
	picked = urlutil.BuildAbsolute(f.params.BaseURL, picked)
	f.PickedRepository = picked

	if err := drv.Goto(ctx, picked, driver.WaitLoad); err != nil {
		return err
	}
	name, err := drv.Text(ctx, RepositoryName)
	if err != nil {
		return err
	}
	f.PickedName = name
	obs.From(ctx).Info("accessed_repository", "repository", name, "url", picked)

	url, err := drv.URL(ctx)
	if err != nil {
		return err
	}
	if !urlutil.Contains(url, picked) {
		return errs.New(errs.AssertionFailed, fmt.Sprintf("url after opening repository: %q does not contain %q", url, picked))
	}
	return nil
}

// OpenPullRequests switches the open repository to its pull requests tab.
func (f *Flow) OpenPullRequests(ctx context.Context, drv driver.Driver) error {
	return drv.ClickAndWait(ctx, PullRequestsTab, driver.WaitLoad)
}

// CreateRepository goes home, fills the new repository form as public,
// submits it and screenshots the result.
func (f *Flow) CreateRepository(ctx context.Context, drv driver.Driver) error {
	if err := drv.ClickAndWait(ctx, HomeLink(f.Root()), driver.WaitNetworkIdle); err != nil {
		return err
	}
	if err := drv.WaitFor(ctx, NewRepoNameCSS); err != nil {
		return err
	}
	if err := drv.WaitFor(ctx, NewRepoName); err != nil {
		return err
	}
	if err := drv.Type(ctx, NewRepoName, f.params.NewRepoName); err != nil {
		return err
	}
	if err := drv.WaitFor(ctx, PublicOption); err != nil {
		return err
	}
	if err := drv.Click(ctx, PublicOption); err != nil {
		return err
	}
	if err := drv.ClickAndWait(ctx, CreateRepoBtn, driver.WaitNetworkIdle); err != nil {
		return err
	}

	png, err := drv.Screenshot(ctx)
	if err != nil {
		return err
	}
	art, err := f.sink.Save(ctx, f.params.ScreenshotPath, png)
	f.Screenshot = art
	return err
}

// Logout signs out through the confirmation page and expects the root.
func (f *Flow) Logout(ctx context.Context, drv driver.Driver) error {
	if err := drv.Click(ctx, AccountMenuButton); err != nil {
		return err
	}
	if err := drv.ClickAndWait(ctx, SignOutLink, driver.WaitLoad); err != nil {
		return err
	}
	if err := drv.ClickAndWait(ctx, SignOutButton, driver.WaitNetworkIdle); err != nil {
		return err
	}

	url, err := drv.URL(ctx)
	if err != nil {
		return err
	}
	obs.From(ctx).Info("logout_successful", "url", url)
	return expectEqual("url after logout", url, f.Root())
}

func expectEqual(what, got, want string) error {
	if got == want {
		return nil
	}
	return errs.New(errs.AssertionFailed, fmt.Sprintf("%s: got %q, want %q", what, got, want))
}
