package pwdriver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/ghflow/internal/driver"
	"github.com/kuitang/ghflow/internal/errs"
)

func TestWaitUntilState(t *testing.T) {
	require.Equal(t, playwright.WaitUntilStateLoad, waitUntilState(driver.WaitLoad))
	require.Equal(t, playwright.WaitUntilStateDomcontentloaded, waitUntilState(driver.WaitDOMContentLoaded))
	require.Equal(t, playwright.WaitUntilStateNetworkidle, waitUntilState(driver.WaitNetworkIdle))
	require.Equal(t, playwright.WaitUntilStateLoad, waitUntilState(""))
}

func TestClassify_TimeoutIsNotFound(t *testing.T) {
	timeout := fmt.Errorf("locator.click: %w", playwright.ErrTimeout)
	err := classify("click #login_field", timeout)
	require.Equal(t, errs.NotFound, errs.CodeOf(err))
	require.ErrorIs(t, err, playwright.ErrTimeout)
	require.Contains(t, err.Error(), "click #login_field")

	err = classify("take screenshot", errors.New("target closed"))
	require.Equal(t, errs.Internal, errs.CodeOf(err))
}

func TestLaunch_SkipsWithoutBrowser(t *testing.T) {
	if testing.Short() {
		t.Skip("launches a browser")
	}
	drv, err := Launch(t.Context(), driver.Options{Headless: true})
	if errs.CodeOf(err) == errs.Unavailable {
		t.Skip("Playwright not available:", err)
	}
	require.NoError(t, err)
	require.Equal(t, Name, drv.Name())
	require.NoError(t, drv.Close())
}
