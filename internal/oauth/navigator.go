package oauth

import "sync"

// Navigator is the browser capability the flow drives. A full-page redirect
// terminates the calling context in a real browser, so implementations must
// not assume code runs after Redirect.
type Navigator interface {
	// Redirect performs a full-page navigation to the given URL
	Redirect(url string) error
	// OpenPopup opens the URL in a popup window instead of navigating away
	OpenPopup(url string) error
	// Location returns the current URL including any fragment
	Location() string
	// ReplaceURL swaps the visible URL without adding a history entry
	ReplaceURL(url string) error
}

// BrowserlessNavigator is an in-process Navigator for tests and the headless
// demo. Redirects are recorded rather than performed.
type BrowserlessNavigator struct {
	mu       sync.Mutex
	current  string
	visited  []string
	popups   []string
	replaced []string
}

// NewBrowserlessNavigator starts at the given URL
func NewBrowserlessNavigator(startURL string) *BrowserlessNavigator {
	return &BrowserlessNavigator{current: startURL}
}

func (n *BrowserlessNavigator) Redirect(url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visited = append(n.visited, url)
	n.current = url
	return nil
}

func (n *BrowserlessNavigator) OpenPopup(url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.popups = append(n.popups, url)
	return nil
}

func (n *BrowserlessNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *BrowserlessNavigator) ReplaceURL(url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replaced = append(n.replaced, url)
	n.current = url
	return nil
}

// Arrive simulates the provider redirecting back to the app
func (n *BrowserlessNavigator) Arrive(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = url
}

// LastRedirect returns the most recent full-page navigation target
func (n *BrowserlessNavigator) LastRedirect() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.visited) == 0 {
		return ""
	}
	return n.visited[len(n.visited)-1]
}

// LastPopup returns the most recent popup target
func (n *BrowserlessNavigator) LastPopup() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.popups) == 0 {
		return ""
	}
	return n.popups[len(n.popups)-1]
}
