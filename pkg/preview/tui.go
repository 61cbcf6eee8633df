package preview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/events"
)

// ViewMode represents the current view mode
type ViewMode int

// View modes for the browser
const (
	ListViewMode ViewMode = iota
	DetailViewMode
)

// Loader loads one page of a collection
type Loader interface {
	Load(ctx context.Context, collectionKey, page, pageSize int) (*collection.Page[collection.Item], error)
}

// ImageLinker builds the detail image URL for an item
type ImageLinker interface {
	DetailURL(item collection.Item) string
}

// Options configures a browser
type Options struct {
	Context       context.Context
	Title         string
	CollectionKey int
	Page          int
	PageSize      int
	Loader        Loader
	Images        ImageLinker
	Events        <-chan events.Event
	Connectivity  <-chan bool
	Connected     bool
}

type pageLoadedMsg struct {
	page   int
	result *collection.Page[collection.Item]
	err    error
}

type prefetchedMsg struct {
	page int
	err  error
}

type eventMsg struct{ event events.Event }

type connectivityMsg struct{ connected bool }

type streamClosedMsg struct{}

// Model represents the Bubble Tea model for the collection browser
type Model struct {
	ctx           context.Context
	title         string
	loader        Loader
	images        ImageLinker
	events        <-chan events.Event
	connectivity  <-chan bool
	collectionKey int
	pageNum       int
	pageSize      int

	page      *collection.Page[collection.Item]
	err       error
	loading   bool
	connected bool

	cursor        int
	viewMode      ViewMode
	selectedIndex int // Index of the item currently being viewed in detail
	width         int
	height        int
}

// NewModel creates a new browser model
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pageNum := opts.Page
	if pageNum < 1 {
		pageNum = 1
	}
	return Model{
		ctx:           ctx,
		title:         opts.Title,
		loader:        opts.Loader,
		images:        opts.Images,
		events:        opts.Events,
		connectivity:  opts.Connectivity,
		collectionKey: opts.CollectionKey,
		pageNum:       pageNum,
		pageSize:      opts.PageSize,
		connected:     opts.Connected,
		loading:       true,
		viewMode:      ListViewMode,
		selectedIndex: -1,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPage(m.pageNum), m.waitForEvent(), m.waitForConnectivity())
}

// PageNumber returns the page currently shown or being loaded
func (m Model) PageNumber() int {
	return m.pageNum
}

// Connected reports the last connectivity state the browser saw
func (m Model) Connected() bool {
	return m.connected
}

// Err returns the error of the last load, if any
func (m Model) Err() error {
	return m.err
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case pageLoadedMsg:
		return m.handlePageLoaded(msg)

	case prefetchedMsg:
		if msg.err != nil {
			slog.Debug("Prefetch failed", "page", msg.page, "error", msg.err)
		}
		return m, nil

	case eventMsg:
		var cmd tea.Cmd
		if updated, ok := msg.event.(events.PageUpdated); ok &&
			updated.CollectionKey == m.collectionKey && updated.Page == m.pageNum && !m.loading {
			m.loading = true
			cmd = m.loadPage(m.pageNum)
		}
		return m, tea.Batch(cmd, m.waitForEvent())

	case connectivityMsg:
		var cmd tea.Cmd
		wasConnected := m.connected
		m.connected = msg.connected
		if msg.connected && !wasConnected && m.err != nil && !m.loading {
			m.loading = true
			cmd = m.loadPage(m.pageNum)
		}
		return m, tea.Batch(cmd, m.waitForConnectivity())

	case streamClosedMsg:
		return m, nil

	case tea.KeyMsg:
		switch m.viewMode {
		case ListViewMode:
			return m.updateListView(msg)
		case DetailViewMode:
			return m.updateDetailView(msg)
		}
	}

	return m, nil
}

func (m Model) handlePageLoaded(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.page != m.pageNum {
		return m, nil
	}
	m.loading = false

	if msg.err != nil {
		m.err = msg.err
		if m.page != nil && m.page.Page != m.pageNum {
			m.page = nil
		}
		return m, nil
	}

	m.err = nil
	m.page = msg.result
	if m.cursor >= len(m.page.Items) {
		m.cursor = max(len(m.page.Items)-1, 0)
	}

	if m.connected && m.hasNext() {
		return m, m.prefetch(m.pageNum + 1)
	}
	return m, nil
}

// updateListView handles key presses in list view mode
func (m Model) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.page != nil && m.cursor < len(m.page.Items)-1 {
			m.cursor++
		}

	case "right", "n":
		if !m.loading && m.hasNext() {
			return m.goToPage(m.pageNum + 1)
		}

	case "left", "p":
		if !m.loading && m.pageNum > 1 {
			return m.goToPage(m.pageNum - 1)
		}

	case "r":
		if !m.loading {
			m.loading = true
			return m, m.loadPage(m.pageNum)
		}

	case "enter":
		if m.page != nil && len(m.page.Items) > 0 {
			m.selectedIndex = m.cursor
			m.viewMode = DetailViewMode
		}
	}

	return m, nil
}

// updateDetailView handles key presses in detail view mode
func (m Model) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc", "backspace":
		m.viewMode = ListViewMode
	}

	return m, nil
}

func (m Model) goToPage(page int) (tea.Model, tea.Cmd) {
	m.pageNum = page
	m.cursor = 0
	m.loading = true
	return m, m.loadPage(page)
}

// hasNext reports whether a page after the current one may exist
func (m Model) hasNext() bool {
	if m.page == nil {
		return false
	}
	if len(m.page.Items) == 0 {
		return false
	}
	return m.pageNum < m.page.TotalPages
}

func (m Model) loadPage(page int) tea.Cmd {
	loader, ctx := m.loader, m.ctx
	key, size := m.collectionKey, m.pageSize
	return func() tea.Msg {
		result, err := loader.Load(ctx, key, page, size)
		return pageLoadedMsg{page: page, result: result, err: err}
	}
}

func (m Model) prefetch(page int) tea.Cmd {
	loader, ctx := m.loader, m.ctx
	key, size := m.collectionKey, m.pageSize
	return func() tea.Msg {
		_, err := loader.Load(ctx, key, page, size)
		return prefetchedMsg{page: page, err: err}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

func (m Model) waitForConnectivity() tea.Cmd {
	if m.connectivity == nil {
		return nil
	}
	ch := m.connectivity
	return func() tea.Msg {
		connected, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return connectivityMsg{connected: connected}
	}
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12")).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	offlineStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("9")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)

// View implements tea.Model
func (m Model) View() string {
	switch m.viewMode {
	case DetailViewMode:
		return m.renderDetailView()
	default:
		return m.renderListView()
	}
}

func (m Model) renderHeader() string {
	title := m.title
	if title == "" {
		title = fmt.Sprintf("Collection %d", m.collectionKey)
	}

	header := headerStyle.Render(title)
	if position := FormatPagePosition(m.page); position != "" {
		header += " " + footerStyle.Render(position)
	}
	if !m.connected {
		header += " " + offlineStyle.Render("OFFLINE")
	}
	return header
}

// renderListView renders the list view
func (m Model) renderListView() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch {
	case m.loading && m.page == nil:
		b.WriteString(fmt.Sprintf("Loading page %d...\n", m.pageNum))
	case m.err != nil && m.page == nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case m.page != nil && len(m.page.Items) == 0:
		b.WriteString("No items on this page\n")
	case m.page != nil:
		m.renderItems(&b)
	}

	if m.err != nil && m.page != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	footer := "↑/↓ or j/k: navigate • ←/→ or p/n: page • enter: details • r: reload • q: quit"
	b.WriteString(footerStyle.Render(footer))

	return b.String()
}

func (m Model) renderItems(b *strings.Builder) {
	items := m.page.Items
	visibleStart := 0
	visibleEnd := len(items)

	if m.height > 0 {
		maxVisible := m.height - 6 // Account for header, footer, and padding
		if maxVisible > 0 && maxVisible < len(items) {
			visibleStart = max(m.cursor-maxVisible/2, 0)
			visibleEnd = visibleStart + maxVisible
			if visibleEnd > len(items) {
				visibleEnd = len(items)
				visibleStart = max(visibleEnd-maxVisible, 0)
			}
		}
	}

	for i := visibleStart; i < visibleEnd; i++ {
		line := FormatCompactListItem(i, items[i])
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("→ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
}

// renderDetailView renders the detail view
func (m Model) renderDetailView() string {
	if m.page == nil || m.selectedIndex < 0 || m.selectedIndex >= len(m.page.Items) {
		return "No item selected"
	}

	item := m.page.Items[m.selectedIndex]
	imageURL := ""
	if m.images != nil && item.ExternalImageRef != "" {
		imageURL = m.images.DetailURL(item)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(FormatDetailedItem(item, imageURL))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("esc: back to list • q: quit"))

	return b.String()
}

// Run starts the Bubble Tea program
func Run(opts Options) error {
	if opts.Loader == nil {
		return fmt.Errorf("browser needs a page loader")
	}

	var programOpts []tea.ProgramOption
	programOpts = append(programOpts, tea.WithAltScreen())
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}

	p := tea.NewProgram(NewModel(opts), programOpts...)
	_, err := p.Run()
	return err
}
