package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/portfolio-leaderboard/internal/factory"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/testutil"
	"github.com/mcoot/portfolio-leaderboard/internal/web"
)

// webTestServer provides a test server for web interface testing
type webTestServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
	cookies *cookieJar
}

// newWebTestServer creates a new test server with all dependencies wired
// and the change relay running
func newWebTestServer(t *testing.T) *webTestServer {
	t.Helper()

	app := factory.NewTestApp()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		assert.NoError(t, app.Close())
	})
	require.Eventually(t, func() bool {
		return app.Memory.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	router := web.NewRouter(web.RouterConfig{
		Logger:      testutil.NopLogger(),
		Submission:  app.Submission,
		Leaderboard: app.Leaderboard,
		Hub:         app.Hub,
		Metrics:     app.Metrics,
	})

	return &webTestServer{
		t:       t,
		handler: router,
		app:     app,
		cookies: newCookieJar(),
	}
}

// request makes an HTTP request and returns the response
func (ts *webTestServer) request(method, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}

	// Add cookies from jar
	ts.cookies.addTo(req)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	// Extract Set-Cookie headers into jar
	ts.cookies.extract(rr)

	return rr
}

// get makes a GET request
func (ts *webTestServer) get(path string) *httptest.ResponseRecorder {
	return ts.request(http.MethodGet, path, nil, false)
}

// post makes a POST request with form data (non-HTMX)
func (ts *webTestServer) post(path string, form url.Values) *httptest.ResponseRecorder {
	return ts.request(http.MethodPost, path, form, false)
}

// postHTMX makes a POST request with form data as an HTMX request
func (ts *webTestServer) postHTMX(path string, form url.Values) *httptest.ResponseRecorder {
	return ts.request(http.MethodPost, path, form, true)
}

// followRedirect follows a redirect and returns the response
func (ts *webTestServer) followRedirect(rr *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	ts.t.Helper()
	location := rr.Header().Get("Location")
	require.NotEmpty(ts.t, location, "Expected Location header for redirect")
	return ts.get(location)
}

// submit posts the form as htmx does and returns the parsed response
func (ts *webTestServer) submit(name, value string) *goquery.Document {
	ts.t.Helper()
	rr := ts.postHTMX("/players", url.Values{"name": {name}, "value": {value}})
	require.Equal(ts.t, http.StatusOK, rr.Code)
	return parseHTML(rr.Body)
}

// parseHTML parses the response body as HTML
func parseHTML(r io.Reader) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		panic(err)
	}
	return doc
}

// cookieJar maintains cookies across requests (like a browser would)
type cookieJar struct {
	cookies map[string]*http.Cookie
}

func newCookieJar() *cookieJar {
	return &cookieJar{
		cookies: make(map[string]*http.Cookie),
	}
}

// addTo adds all cookies to the request
func (j *cookieJar) addTo(req *http.Request) {
	for _, cookie := range j.cookies {
		req.AddCookie(cookie)
	}
}

// extract extracts Set-Cookie headers from response
func (j *cookieJar) extract(rr *httptest.ResponseRecorder) {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.MaxAge < 0 {
			// Cookie being deleted
			delete(j.cookies, cookie.Name)
		} else {
			j.cookies[cookie.Name] = cookie
		}
	}
}

// Assertion helpers

// assertContainsElement asserts that the document contains an element matching the selector
func assertContainsElement(t *testing.T, doc *goquery.Document, selector string) {
	t.Helper()
	if doc.Find(selector).Length() == 0 {
		t.Errorf("Expected to find element matching %q, but none found", selector)
	}
}

// assertNotContainsElement asserts that the document does not contain an element matching the selector
func assertNotContainsElement(t *testing.T, doc *goquery.Document, selector string) {
	t.Helper()
	if doc.Find(selector).Length() > 0 {
		t.Errorf("Expected NOT to find element matching %q, but found %d", selector, doc.Find(selector).Length())
	}
}

// assertContainsText asserts that the element matching the selector contains the text
func assertContainsText(t *testing.T, doc *goquery.Document, selector, text string) {
	t.Helper()
	el := doc.Find(selector)
	if el.Length() == 0 {
		t.Errorf("Expected to find element matching %q, but none found", selector)
		return
	}
	if !strings.Contains(el.Text(), text) {
		t.Errorf("Expected element %q to contain %q, but got %q", selector, text, el.Text())
	}
}

// Home page

func TestHomePage(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, "title", "Portfolio Leaderboard")
	assertContainsText(t, doc, "#submit-form h2", "Update Portfolio")
	assertContainsElement(t, doc, "#submit-form input[name=name]")
	assertContainsElement(t, doc, "#submit-form input[name=value]")
	assertContainsText(t, doc, "dialog#how-to-play", "How to play")
	assertContainsElement(t, doc, "#leaderboard[sse-connect='/events']")
	assertContainsElement(t, doc, "#leaderboard-body .skeleton")
	assertNotContainsElement(t, doc, ".refresh-hint")
	assertNotContainsElement(t, doc, ".toast")
}

func TestUnknownRouteIs404(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// Submission

func TestSubmitAddsPlayer(t *testing.T) {
	ts := newWebTestServer(t)

	doc := ts.submit("Alice", "100000")

	assertContainsText(t, doc, ".toast-success", "Player added!")
	assertContainsText(t, doc, ".refresh-hint", "Please refresh the page to update the leaderboard")
	assert.Equal(t, "", doc.Find("input[name=name]").AttrOr("value", "missing"), "form is cleared")
	assert.Equal(t, "", doc.Find("input[name=value]").AttrOr("value", "missing"), "form is cleared")

	p, err := ts.app.Store.GetPlayerByName(t.Context(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, p.CurrentValue)
	assert.Nil(t, p.PreviousValue)
}

func TestSubmitUpdatesPlayer(t *testing.T) {
	ts := newWebTestServer(t)
	ts.submit("Alice", "100000")

	doc := ts.submit("Alice", "105000")
	assertContainsText(t, doc, ".toast-success", "Portfolio updated!")

	p, err := ts.app.Store.GetPlayerByName(t.Context(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 105000.0, p.CurrentValue)
	require.NotNil(t, p.PreviousValue)
	assert.Equal(t, 100000.0, *p.PreviousValue)
}

func TestSubmitInvalidValue(t *testing.T) {
	ts := newWebTestServer(t)
	ts.submit("Alice", "100000")

	doc := ts.submit("Alice", "abc")
	assertContainsText(t, doc, ".toast-error", "Please enter a valid portfolio value")
	assert.Equal(t, "Alice", doc.Find("input[name=name]").AttrOr("value", ""), "input kept for correction")
	assert.Equal(t, "abc", doc.Find("input[name=value]").AttrOr("value", ""))
	assertNotContainsElement(t, doc, ".refresh-hint")

	p, err := ts.app.Store.GetPlayerByName(t.Context(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, p.CurrentValue, "record unchanged")
	assert.Nil(t, p.PreviousValue)
}

func TestSubmitEmptyFieldsIgnored(t *testing.T) {
	ts := newWebTestServer(t)

	doc := ts.submit("", "100")
	assertNotContainsElement(t, doc, ".toast")
	doc = ts.submit("Alice", "  ")
	assertNotContainsElement(t, doc, ".toast")

	players, err := ts.app.Store.ListPlayers(t.Context())
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestSubmitWithoutHTMXRedirectsWithFlash(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.post("/players", url.Values{"name": {"Alice"}, "value": {"100000"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?submitted=1", rr.Header().Get("Location"))

	doc := parseHTML(ts.followRedirect(rr).Body)
	assertContainsText(t, doc, "#toasts .toast-success", "Player added!")
	assertContainsElement(t, doc, ".refresh-hint")

	// The flash is shown once
	doc = parseHTML(ts.get("/").Body)
	assertNotContainsElement(t, doc, ".toast")
}

func TestSubmitInvalidWithoutHTMX(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.post("/players", url.Values{"name": {"Alice"}, "value": {"lots"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	doc := parseHTML(ts.followRedirect(rr).Body)
	assertContainsText(t, doc, ".toast-error", "Please enter a valid portfolio value")
}

// Leaderboard

func TestLeaderboardFragmentOrderedByValue(t *testing.T) {
	ts := newWebTestServer(t)
	ts.submit("Low", "10")
	ts.submit("High", "1000")
	ts.submit("Mid", "500")
	ts.submit("Low", "750")

	rr := ts.get("/leaderboard")
	require.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(rr.Body)

	var names []string
	doc.Find("li.entry .name").Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.Text())
	})
	assert.Equal(t, []string{"High", "Low", "Mid"}, names)

	low := doc.Find("li.entry").Eq(1)
	assert.Equal(t, "#2", low.Find(".rank").Text())
	assert.Equal(t, "$750.00", low.Find(".value").Text())
	assert.Contains(t, low.Find(".change-up").Text(), "+7400.00%")
	assertNotContainsElement(t, doc, "li.entry:nth-child(1) .change")
}

func TestLeaderboardFragmentEmpty(t *testing.T) {
	ts := newWebTestServer(t)

	doc := parseHTML(ts.get("/leaderboard").Body)
	assertContainsText(t, doc, ".empty", "No players yet")
	assertNotContainsElement(t, doc, "li.entry")
}

func TestAliceScenario(t *testing.T) {
	ts := newWebTestServer(t)

	ts.submit("Alice", "100000")
	ts.submit("Alice", "105000")

	doc := parseHTML(ts.get("/leaderboard").Body)
	assertContainsText(t, doc, "li.entry .change-up", "+5.00%")

	ts.submit("Alice", "abc")
	doc = parseHTML(ts.get("/leaderboard").Body)
	assertContainsText(t, doc, "li.entry .value", "$105,000.00")
	assertContainsText(t, doc, "li.entry .change-up", "+5.00%")
}

// Deletion

func TestConfirmDeletePage(t *testing.T) {
	ts := newWebTestServer(t)
	ts.app.MockIDs.Queue("alice-id")
	ts.submit("Alice", "100")

	rr := ts.get("/players/alice-id/delete")
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, ".confirm", "Are you sure you want to delete Alice's data? This action cannot be undone.")
	assertContainsText(t, doc, ".confirm .warning", "Please only delete your own data.")
	assert.Equal(t, "/players/alice-id/delete", doc.Find(".confirm form").AttrOr("action", ""))
	assertContainsElement(t, doc, ".confirm a[href='/']")
}

func TestConfirmDeleteUnknownPlayer(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/players/ghost/delete")
	require.Equal(t, http.StatusSeeOther, rr.Code)

	doc := parseHTML(ts.followRedirect(rr).Body)
	assertContainsText(t, doc, ".toast-error", "Player not found")
}

func TestDeleteHTMXReRendersLeaderboard(t *testing.T) {
	ts := newWebTestServer(t)
	ts.app.MockIDs.Queue("alice-id", "bob-id")
	ts.submit("Alice", "100")
	ts.submit("Bob", "200")

	rr := ts.postHTMX("/players/alice-id/delete", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(rr.Body)
	assert.Equal(t, 1, doc.Find("li.entry").Length())
	assertContainsText(t, doc, "li.entry .name", "Bob")
	assertContainsText(t, doc, "#toasts .toast-success", "Alice's data removed")

	_, err := ts.app.Store.GetPlayer(t.Context(), "alice-id")
	assert.ErrorIs(t, err, model.ErrPlayerNotFound)
}

func TestDeleteUnknownPlayerChangesNothing(t *testing.T) {
	ts := newWebTestServer(t)
	ts.submit("Alice", "100")

	rr := ts.postHTMX("/players/ghost/delete", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(rr.Body)
	assertContainsText(t, doc, ".toast-error", "Player not found")
	assert.Equal(t, 1, doc.Find("li.entry").Length())
}

func TestDeleteWithoutHTMXRedirectsWithFlash(t *testing.T) {
	ts := newWebTestServer(t)
	ts.app.MockIDs.Queue("alice-id")
	ts.submit("Alice", "100")

	rr := ts.post("/players/alice-id/delete", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	doc := parseHTML(ts.followRedirect(rr).Body)
	assertContainsText(t, doc, ".toast-success", "Alice's data removed")

	doc = parseHTML(ts.get("/leaderboard").Body)
	assertNotContainsElement(t, doc, "li.entry")
}
