package components

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
)

func renderDoc(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	return doc
}

func player(id, name string, current float64, previous *float64) *model.Player {
	return &model.Player{
		ID:            model.PlayerID(id),
		Name:          name,
		CurrentValue:  current,
		PreviousValue: previous,
		LastUpdated:   time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
	}
}

func ptr(v float64) *float64 { return &v }

func TestLeaderboardRendersEntries(t *testing.T) {
	entries := []leaderboard.Entry{
		leaderboard.NewEntry(1, player("a", "Alice", 105000, ptr(100000))),
		leaderboard.NewEntry(2, player("b", "Bob", 900, ptr(1000))),
		leaderboard.NewEntry(3, player("c", "Carol", 50, nil)),
		leaderboard.NewEntry(4, player("d", "Dan", 10, ptr(0))),
	}

	doc := renderDoc(t, Leaderboard(entries))
	rows := doc.Find("li.entry")
	require.Equal(t, 4, rows.Length())

	alice := rows.Eq(0)
	assert.Equal(t, "a", alice.AttrOr("data-player-id", ""))
	assert.True(t, alice.Find(".rank").HasClass("rank-gold"))
	assert.Equal(t, "#1", alice.Find(".rank").Text())
	assert.Equal(t, "Alice", alice.Find(".name").Text())
	assert.Equal(t, "$105,000.00", alice.Find(".value").Text())
	assert.Equal(t, "Mar 5, 2024", alice.Find(".updated").Text())
	assert.True(t, alice.Find(".change").HasClass("change-up"))
	assert.Contains(t, alice.Find(".change").Text(), "+5.00%")

	bob := rows.Eq(1)
	assert.True(t, bob.Find(".rank").HasClass("rank-silver"))
	assert.True(t, bob.Find(".change").HasClass("change-down"))
	assert.Contains(t, bob.Find(".change").Text(), "-10.00%")

	assert.True(t, rows.Eq(2).Find(".rank").HasClass("rank-bronze"))
	assert.Equal(t, 0, rows.Eq(2).Find(".change").Length(), "no previous value, no indicator")

	assert.True(t, rows.Eq(3).Find(".rank").HasClass("rank-default"))
	assert.Equal(t, 0, rows.Eq(3).Find(".change").Length(), "zero previous value, no indicator")
}

func TestLeaderboardDeleteControlConfirms(t *testing.T) {
	doc := renderDoc(t, Leaderboard([]leaderboard.Entry{
		leaderboard.NewEntry(1, player("a", "Alice", 1, nil)),
	}))

	link := doc.Find("a.delete")
	assert.Equal(t, "/players/a/delete", link.AttrOr("href", ""))
	assert.Equal(t, "/players/a/delete", link.AttrOr("hx-post", ""))
	assert.Equal(t,
		"Are you sure you want to delete Alice's data? This action cannot be undone.",
		link.AttrOr("hx-confirm", ""))
}

func TestLeaderboardEscapesNames(t *testing.T) {
	doc := renderDoc(t, Leaderboard([]leaderboard.Entry{
		leaderboard.NewEntry(1, player("a", `<img src=x onerror="alert(1)">`, 1, nil)),
	}))

	assert.Equal(t, 0, doc.Find("img").Length())
	assert.Equal(t, `<img src=x onerror="alert(1)">`, doc.Find(".name").Text())
}

func TestLeaderboardEmptyState(t *testing.T) {
	doc := renderDoc(t, Leaderboard(nil))

	assert.Equal(t, 0, doc.Find("li.entry").Length())
	assert.Equal(t, leaderboard.EmptyMessage, doc.Find(".empty").Text())
}

func TestLeaderboardSectionListensForChanges(t *testing.T) {
	doc := renderDoc(t, LeaderboardSection())

	section := doc.Find("#leaderboard")
	assert.Equal(t, "sse", section.AttrOr("hx-ext", ""))
	assert.Equal(t, "/events", section.AttrOr("sse-connect", ""))

	body := doc.Find("#" + LeaderboardBodyID)
	assert.Equal(t, "/leaderboard", body.AttrOr("hx-get", ""))
	assert.Equal(t, "load, sse:players-changed", body.AttrOr("hx-trigger", ""))
	assert.Equal(t, 3, body.Find(".skeleton-row").Length(), "skeleton shown before first fetch")
}

func TestSubmitForm(t *testing.T) {
	doc := renderDoc(t, SubmitForm(SubmitFormData{}))

	form := doc.Find("#submit-form form")
	assert.Equal(t, "Update Portfolio", doc.Find("#submit-form h2").Text())
	assert.Equal(t, "/players", form.AttrOr("hx-post", ""))
	assert.Equal(t, "find button", form.AttrOr("hx-disabled-elt", ""))
	assert.Equal(t, "Processing...", form.Find("button .busy").Text())
	assert.Equal(t, "", form.Find("input[name=name]").AttrOr("value", "missing"))
	assert.Equal(t, 0, doc.Find(".refresh-hint").Length())
}

func TestSubmitFormKeepsInputAndShowsHint(t *testing.T) {
	doc := renderDoc(t, SubmitForm(SubmitFormData{Name: "Alice", Value: "abc", ShowHint: true}))

	assert.Equal(t, "Alice", doc.Find("input[name=name]").AttrOr("value", ""))
	assert.Equal(t, "abc", doc.Find("input[name=value]").AttrOr("value", ""))
	assert.Equal(t, RefreshHint, doc.Find(".refresh-hint").Text())
}

func TestToastOOB(t *testing.T) {
	doc := renderDoc(t, ToastOOB("error", "Something went wrong!"))

	container := doc.Find("#" + ToastContainerID)
	assert.Equal(t, "beforeend", container.AttrOr("hx-swap-oob", ""))
	toast := container.Find(".toast")
	assert.True(t, toast.HasClass("toast-error"))
	assert.Equal(t, "Something went wrong!", toast.Text())
}

func TestInstructions(t *testing.T) {
	doc := renderDoc(t, Instructions())

	assert.Equal(t, "How to play", doc.Find("dialog#how-to-play h2").Text())
	assert.Equal(t, len(UpdateSteps), doc.Find("dialog#how-to-play ol.steps li").Length())
}

func TestInstructionsListGameConditions(t *testing.T) {
	doc := renderDoc(t, Instructions())

	conditions := doc.Find("dialog#how-to-play ul.conditions li")
	require.Equal(t, 4, conditions.Length())
	assert.Contains(t, conditions.Text(), "1 December to 31 December")
	assert.Contains(t, conditions.Text(), "$100,000 AUD")
	assert.Contains(t, conditions.Text(), "trade costs: not included")

	link := doc.Find("dialog#how-to-play a.app-link")
	href, ok := link.Attr("href")
	require.True(t, ok)
	assert.Equal(t, TrackingAppURL, href)
	assert.Equal(t, "noopener noreferrer", link.AttrOr("rel", ""))
}
