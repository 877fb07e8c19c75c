package scenario

import (
	"fmt"

	"github.com/kuitang/ghflow/internal/driver"
)

// Selectors against github.com markup. They break whenever the site changes
// its markup; keep them in one place so a breakage is a one-file fix.
var (
	SignInLink      = driver.CSS(`a[href="/login"]`)
	LoginField      = driver.CSS(`#login_field`)
	PasswordField   = driver.CSS(`#password`)
	SignInButton    = driver.CSS(`input[name="commit"]`)
	RepositoryItem  = driver.CSS(`li[itemprop="owns"]`)
	RepositoryLinks = driver.CSS(`li[itemprop="owns"] a`)
	RepositoryName  = driver.CSS(`strong[itemprop="name"] a`)
	PullRequestsTab = driver.CSS(`span[data-content="Pull requests"]`)
	NewRepoNameCSS  = driver.CSS(`input[name="repository[name]"]`)
	NewRepoName     = driver.XPath(`//*[@id="repository[name]"]`)
	PublicOption    = driver.XPath(`//*[@id="repository[visibility]_public"]`)
	CreateRepoBtn   = driver.XPath(`//button[@data-disable-with="Create a new repository"]`)
	SignOutLink     = driver.CSS(`a[href="/logout"]`)
	SignOutButton   = driver.CSS(`input[value="Sign out"]`)

	AccountMenuButton = driver.CSS(`button[class="Button--invisible Button--medium Button Button--invisible-noVisuals color-bg-transparent p-0"]`)
)

// AccountName matches the element whose title is the signed-in username.
func AccountName(username string) driver.Selector {
	return driver.CSS(fmt.Sprintf(`div[title=%q]`, username))
}

// RepositoriesTab matches the link to username's repositories tab.
func RepositoriesTab(username string) driver.Selector {
	return driver.CSS(fmt.Sprintf(`a[href=%q]`, "/"+username+"?tab=repositories"))
}

// HomeLink matches the absolute link back to the site root.
func HomeLink(root string) driver.Selector {
	return driver.CSS(fmt.Sprintf(`a[href=%q]`, root))
}
