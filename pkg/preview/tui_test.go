package preview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/events"
)

type loadCall struct{ page, size int }

type fakeLoader struct {
	mu         sync.Mutex
	calls      []loadCall
	totalPages int
	err        error
}

func (f *fakeLoader) Load(_ context.Context, key, page, size int) (*collection.Page[collection.Item], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, loadCall{page, size})
	if f.err != nil {
		return nil, f.err
	}
	items := make([]collection.Item, 3)
	for i := range items {
		items[i] = collection.Item{
			ID:               page*100 + i,
			Title:            "Artwork",
			OwnerKey:         "1",
			ExternalImageRef: "img",
			Width:            10,
			Height:           20,
			Page:             page,
		}
	}
	return &collection.Page[collection.Item]{Items: items, Page: page, PageSize: size, TotalPages: f.totalPages, TotalItems: 3 * f.totalPages}, nil
}

func (f *fakeLoader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeImages struct{}

func (fakeImages) DetailURL(item collection.Item) string { return "https://img.example/" + item.ExternalImageRef }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run feeds msg to the model and returns the updated model and command
func run(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func loaded(t *testing.T, loader *fakeLoader) Model {
	t.Helper()
	m := NewModel(Options{CollectionKey: 1, Page: 1, PageSize: 3, Loader: loader, Images: fakeImages{}, Connected: true})
	m, _ = run(t, m, m.loadPage(1)())
	if m.page == nil {
		t.Fatal("first page did not load")
	}
	return m
}

func TestModel_LoadsAndPrefetches(t *testing.T) {
	loader := &fakeLoader{totalPages: 3}
	m := NewModel(Options{CollectionKey: 1, Page: 1, PageSize: 3, Loader: loader, Connected: true})

	if !strings.Contains(m.View(), "Loading page 1") {
		t.Errorf("initial view = %q", m.View())
	}

	m, cmd := run(t, m, m.loadPage(1)())
	if m.loading || len(m.page.Items) != 3 {
		t.Fatalf("page not loaded: %+v", m.page)
	}
	if cmd == nil {
		t.Fatal("expected a prefetch of the next page")
	}
	msg, ok := cmd().(prefetchedMsg)
	if !ok || msg.page != 2 {
		t.Errorf("prefetch msg = %#v", msg)
	}
	if loader.calls[1] != (loadCall{2, 3}) {
		t.Errorf("prefetch call = %+v", loader.calls[1])
	}
}

func TestModel_NoPrefetchOfflineOrOnLastPage(t *testing.T) {
	loader := &fakeLoader{totalPages: 1}
	m := NewModel(Options{CollectionKey: 1, Page: 1, PageSize: 3, Loader: loader, Connected: true})
	if _, cmd := run(t, m, m.loadPage(1)()); cmd != nil {
		t.Error("prefetched past the last page")
	}

	loader = &fakeLoader{totalPages: 5}
	m = NewModel(Options{CollectionKey: 1, Page: 1, PageSize: 3, Loader: loader, Connected: false})
	if _, cmd := run(t, m, m.loadPage(1)()); cmd != nil {
		t.Error("prefetched while offline")
	}
}

func TestModel_Paging(t *testing.T) {
	loader := &fakeLoader{totalPages: 2}
	m := loaded(t, loader)

	m, _ = run(t, m, key("p"))
	if m.pageNum != 1 {
		t.Errorf("moved before the first page: %d", m.pageNum)
	}

	m, cmd := run(t, m, key("n"))
	if m.pageNum != 2 || !m.loading || cmd == nil {
		t.Fatalf("next page: page=%d loading=%v", m.pageNum, m.loading)
	}

	// Keys are ignored while a load is in flight
	m, _ = run(t, m, key("n"))
	if m.pageNum != 2 {
		t.Errorf("page = %d while loading", m.pageNum)
	}

	m, _ = run(t, m, cmd())
	if m.page.Page != 2 {
		t.Errorf("shown page = %d", m.page.Page)
	}

	m, _ = run(t, m, key("n"))
	if m.pageNum != 2 {
		t.Errorf("moved past the last page: %d", m.pageNum)
	}

	m, cmd = run(t, m, key("p"))
	if m.pageNum != 1 || cmd == nil {
		t.Errorf("previous page: %d", m.pageNum)
	}
}

func TestModel_IgnoresStaleLoads(t *testing.T) {
	loader := &fakeLoader{totalPages: 3}
	m := loaded(t, loader)

	m, _ = run(t, m, key("n"))
	m, _ = run(t, m, pageLoadedMsg{page: 1, err: errors.New("late")})
	if !m.loading || m.err != nil {
		t.Errorf("stale result applied: loading=%v err=%v", m.loading, m.err)
	}
}

func TestModel_ReloadsOnPageUpdated(t *testing.T) {
	loader := &fakeLoader{totalPages: 3}
	m := loaded(t, loader)

	tests := []struct {
		name   string
		event  events.PageUpdated
		reload bool
	}{
		{"other collection", events.PageUpdated{CollectionKey: 2, Page: 1}, false},
		{"other page", events.PageUpdated{CollectionKey: 1, Page: 2}, false},
		{"shown page", events.PageUpdated{CollectionKey: 1, Page: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _ := run(t, m, eventMsg{event: tt.event})
			if next.loading != tt.reload {
				t.Errorf("loading = %v, want %v", next.loading, tt.reload)
			}
		})
	}
}

func TestModel_OfflineBadgeAndRecovery(t *testing.T) {
	offlineErr := &collection.Error{Kind: collection.KindOfflineNoCache}
	loader := &fakeLoader{totalPages: 3, err: offlineErr}
	m := NewModel(Options{CollectionKey: 1, Page: 1, PageSize: 3, Loader: loader, Connected: true})

	m, _ = run(t, m, connectivityMsg{connected: false})
	m, _ = run(t, m, m.loadPage(1)())

	view := m.View()
	if !strings.Contains(view, "OFFLINE") {
		t.Error("offline badge missing")
	}
	if !strings.Contains(view, offlineErr.Error()) {
		t.Errorf("error message missing from view: %q", view)
	}

	loader.err = nil
	m, _ = run(t, m, connectivityMsg{connected: true})
	if !m.loading {
		t.Fatal("expected a reload when connectivity returned")
	}
	if strings.Contains(m.View(), "OFFLINE") {
		t.Error("offline badge still shown")
	}
}

func TestModel_CachedPagePosition(t *testing.T) {
	loader := &fakeLoader{totalPages: collection.UnboundedPages}
	m := loaded(t, loader)

	if !strings.Contains(m.View(), "page 1 (cached") {
		t.Errorf("view = %q", m.View())
	}
	if !m.hasNext() {
		t.Error("cached pages should allow moving forward")
	}
}

func TestModel_DetailView(t *testing.T) {
	m := loaded(t, &fakeLoader{totalPages: 1})

	m, _ = run(t, m, key("down"))
	m, _ = run(t, m, key("enter"))
	if m.viewMode != DetailViewMode || m.selectedIndex != 1 {
		t.Fatalf("viewMode=%v selected=%d", m.viewMode, m.selectedIndex)
	}

	view := m.View()
	for _, want := range []string{"ID: 101", "https://img.example/img", "Size: 10×20"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q", want)
		}
	}

	m, _ = run(t, m, key("esc"))
	if m.viewMode != ListViewMode {
		t.Error("esc did not return to the list")
	}
}

func TestModel_StreamsResubscribe(t *testing.T) {
	eventsCh := make(chan events.Event, 1)
	connCh := make(chan bool, 1)
	m := NewModel(Options{CollectionKey: 1, PageSize: 3, Loader: &fakeLoader{}, Events: eventsCh, Connectivity: connCh})

	eventsCh <- events.PageUpdated{CollectionKey: 1, Page: 1}
	if msg, ok := m.waitForEvent()().(eventMsg); !ok || msg.event.String() != "page_updated(1, 1)" {
		t.Errorf("event msg = %#v", msg)
	}

	close(connCh)
	if _, ok := m.waitForConnectivity()().(streamClosedMsg); !ok {
		t.Error("closed stream not reported")
	}
}

func TestFormatCompactListItem(t *testing.T) {
	item := collection.Item{ID: 16568, Title: strings.Repeat("a", 100), Width: 3000, Height: 2841}
	got := FormatCompactListItem(0, item)
	if !strings.HasPrefix(got, " 1. [#16568") {
		t.Errorf("got %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long title not truncated: %q", got)
	}

	if got := FormatCompactListItem(1, collection.Item{}); !strings.Contains(got, "(untitled)") {
		t.Errorf("got %q", got)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if got != "one two\nthree\nfour" {
		t.Errorf("wrapText() = %q", got)
	}
}
