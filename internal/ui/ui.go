package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/pricepal/internal/formatter"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
	"github.com/desertthunder/pricepal/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CartView ViewState = iota
	ConfirmView
	LookupView
	TargetView
	SubmitView
	ResultView
)

// CartSource lists and removes tracked products. [tasks.CartSync] implements it.
type CartSource interface {
	Fetch(ctx context.Context) (*models.CartSummary, error)
	Remove(ctx context.Context, id string) (*models.CartSummary, error)
	// Summary returns the last fetched summary without a request.
	Summary() *models.CartSummary
}

// ProductSource fetches a product snapshot. [tasks.ProductLookup] implements it.
type ProductSource interface {
	Fetch(ctx context.Context, rawURL string) (*models.ProductSnapshot, error)
}

// Submitter starts tracking a product. [tasks.TrackingSubmitter] implements it.
type Submitter interface {
	Submit(ctx context.Context, progress chan<- tasks.ProgressUpdate, snap *models.ProductSnapshot, rawTarget string) (*tasks.TrackingResult, error)
}

// Deps are the collaborators a [Model] drives.
type Deps struct {
	Cart      CartSource
	Lookup    ProductSource
	Submitter Submitter
	// Open shows a product page. Defaults to [shared.OpenBrowser].
	Open   func(rawURL string) error
	Logger *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	cart      CartSource
	lookup    ProductSource
	submitter Submitter
	open      func(string) error
	logger    *log.Logger

	width    int
	height   int
	cartList list.Model
	summary  *models.CartSummary
	pending  *models.TrackedProduct
	input    textinput.Model
	product  *models.ProductSnapshot
	busy     bool

	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.TrackingResult

	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Open == nil {
		deps.Open = shared.OpenBrowser
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}

	cartList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	cartList.Title = "Tracked Products"
	cartList.SetShowHelp(false)

	input := textinput.New()
	input.CharLimit = 2048

	return &Model{
		ctx:       ctx,
		view:      CartView,
		cart:      deps.Cart,
		lookup:    deps.Lookup,
		submitter: deps.Submitter,
		open:      deps.Open,
		logger:    deps.Logger,
		cartList:  cartList,
		input:     input,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState { return m.view }

// Init initializes the TUI by fetching the cart.
func (m *Model) Init() tea.Cmd {
	m.busy = true
	return m.fetchCart()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.cartList.SetSize(msg.Width-4, msg.Height-8)
		m.input.Width = max(msg.Width-8, 20)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case CartView:
			return m.handleCartKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case LookupView:
			return m.handleLookupKeys(msg)
		case TargetView:
			return m.handleTargetKeys(msg)
		case SubmitView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateInputs(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCartFetched, MsgProductRemoved:
		res := msg.data.(cartResult)
		m.busy = false
		m.pending = nil
		if res.err != nil {
			m.logger.Error("cart update failed", "error", res.err)
			m.err = res.err
			return m, nil
		}
		m.err = nil
		if msg.kind == MsgProductRemoved {
			m.status = "Product removed"
		} else {
			m.status = ""
		}
		m.summary = res.summary
		return m, m.cartList.SetItems(productItems(res.summary))

	case MsgProductFetched:
		res := msg.data.(productResult)
		m.busy = false
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.err = nil
		m.product = res.product
		m.view = TargetView
		m.input.Reset()
		m.input.Placeholder = "Target price in ₹"
		return m, m.input.Focus()

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgTrackingComplete:
		res := msg.data.(trackingResult)
		m.progressChan = nil
		m.doneChan = nil
		if res.err != nil {
			if errors.Is(res.err, shared.ErrInvalidInput) {
				m.err = res.err
				m.view = TargetView
				return m, m.input.Focus()
			}
			m.err = res.err
			m.view = ResultView
			return m, nil
		}
		m.err = nil
		m.result = res.result
		m.view = ResultView
		if summary := m.cart.Summary(); res.result.Refreshed && summary != nil {
			m.summary = summary
			return m, m.cartList.SetItems(productItems(summary))
		}
		m.busy = true
		return m, m.fetchCart()

	case MsgBrowserOpened:
		if err, _ := msg.data.(error); err != nil {
			m.err = err
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case CartView:
		return m.renderCart()
	case ConfirmView:
		return m.renderConfirm()
	case LookupView:
		return m.renderLookup()
	case TargetView:
		return m.renderTarget()
	case SubmitView:
		return m.renderSubmit()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleCartKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.cartList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.cartList, cmd = m.cartList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Refreshing..."
		return m, m.fetchCart()
	case key.Matches(msg, m.keys.remove):
		if p, ok := m.selected(); ok && !m.busy {
			m.pending = &p
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if p, ok := m.selected(); ok {
			return m, m.openProduct(p.AmazonURL)
		}
		return m, nil
	case key.Matches(msg, m.keys.track):
		m.view = LookupView
		m.err = nil
		m.product = nil
		m.input.Reset()
		m.input.Placeholder = "https://www.amazon.in/dp/..."
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.cartList, cmd = m.cartList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = CartView
		if m.pending == nil {
			return m, nil
		}
		m.busy = true
		m.status = "Removing..."
		return m, m.removeProduct(m.pending.ID)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.pending = nil
		m.view = CartView
	}
	return m, nil
}

func (m *Model) handleLookupKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.input.Blur()
		m.err = nil
		m.view = CartView
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.err = nil
		return m, m.fetchProduct(strings.TrimSpace(m.input.Value()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleTargetKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.err = nil
		m.view = LookupView
		m.input.Reset()
		m.input.Placeholder = "https://www.amazon.in/dp/..."
		if m.product != nil {
			m.input.SetValue(m.product.AmazonURL)
		}
		return m, m.input.Focus()
	case "enter":
		m.err = nil
		m.view = SubmitView
		m.input.Blur()
		return m, m.startSubmit(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.view = CartView
		m.result = nil
		m.product = nil
		m.err = nil
	case key.Matches(msg, m.keys.track):
		m.view = LookupView
		m.result = nil
		m.product = nil
		m.err = nil
		m.input.Reset()
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case CartView:
		m.cartList, cmd = m.cartList.Update(msg)
	case LookupView, TargetView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) selected() (models.TrackedProduct, bool) {
	if item, ok := m.cartList.SelectedItem().(productItem); ok {
		return item.product, true
	}
	return models.TrackedProduct{}, false
}

func (m *Model) fetchCart() tea.Cmd {
	return func() tea.Msg {
		summary, err := m.cart.Fetch(m.ctx)
		return cartFetchedMsg(summary, err)
	}
}

func (m *Model) removeProduct(id string) tea.Cmd {
	return func() tea.Msg {
		summary, err := m.cart.Remove(m.ctx, id)
		return productRemovedMsg(summary, err)
	}
}

func (m *Model) fetchProduct(rawURL string) tea.Cmd {
	return func() tea.Msg {
		product, err := m.lookup.Fetch(m.ctx, rawURL)
		return productFetchedMsg(product, err)
	}
}

func (m *Model) openProduct(rawURL string) tea.Cmd {
	open := m.open
	return func() tea.Msg {
		return browserOpenedMsg(open(rawURL))
	}
}

// startSubmit runs the submission in the background. The goroutine owns the progress channel
// and hands its outcome back through doneChan so the model is only mutated inside Update.
func (m *Model) startSubmit(rawTarget string) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done
	m.progress = tasks.ProgressUpdate{}

	snap := m.product
	go func() {
		result, err := m.submitter.Submit(m.ctx, progress, snap, rawTarget)
		close(progress)
		done <- trackingCompleteMsg(result, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return nil
		}

		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderCart() string {
	helpKeys := []key.Binding{m.keys.refresh, m.keys.remove, m.keys.open, m.keys.track, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	var header string
	if m.summary != nil {
		header = fmt.Sprintf("%d tracked • %d active • %d completed\n",
			m.summary.TotalProducts, m.summary.ActiveProducts, m.summary.Completed())
		if len(m.summary.Products) == 0 {
			header += styles.help.Render("Your cart is empty. Press a to track a product.") + "\n"
		}
	} else if m.busy {
		header = "Loading cart...\n"
	}

	var footer string
	switch {
	case m.err != nil:
		footer = styles.err.Render(shared.UserMessage(m.err)) + "\n"
	case m.status != "":
		footer = styles.ok.Render(m.status) + "\n"
	}

	return fmt.Sprintf("%s%s\n%s\n%s", header, m.cartList.View(), footer, helpView)
}

func (m *Model) renderConfirm() string {
	if m.pending == nil {
		return ""
	}
	title := styles.title.Render("Stop tracking this product?")
	info := fmt.Sprintf("\n%s\nTarget: %s\n", m.pending.ProductName, formatter.FormatINR(m.pending.TargetPrice))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderLookup() string {
	title := styles.title.Render("Track a Product")

	var status string
	switch {
	case m.busy:
		status = "Fetching product details..."
	case m.err != nil:
		status = styles.err.Render(shared.UserMessage(m.err))
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	return fmt.Sprintf("%s\nAmazon URL\n%s\n\n%s\n\n%s", title, m.input.View(), status, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTarget() string {
	if m.product == nil {
		return ""
	}
	title := styles.title.Render(m.product.ProductName)
	info := fmt.Sprintf("Current price: %s\n", styles.price.Render(formatter.FormatINR(m.product.CurrentPrice)))
	if m.product.Availability != "" {
		info += fmt.Sprintf("Availability: %s\n", m.product.Availability)
	}

	var status string
	if m.err != nil {
		status = styles.err.Render(shared.UserMessage(m.err))
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.back}
	return fmt.Sprintf("%s\n%s\nTarget price\n%s\n\n%s\n\n%s", title, info, m.input.View(), status, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSubmit() string {
	title := styles.title.Render("Starting Price Tracking")

	var phase string
	switch m.progress.Phase {
	case tasks.Validating:
		phase = "Validating target price..."
	case tasks.Submitting:
		phase = "Adding product to your cart..."
	case tasks.Notifying:
		phase = "Sending confirmation email..."
	case tasks.Done:
		phase = "Done"
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.track, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s",
			styles.err.Render(fmt.Sprintf("Tracking failed: %s", shared.UserMessage(m.err))), helpView)
	}

	if m.result == nil || m.result.Product == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Price tracking started!")
	info := fmt.Sprintf(
		"\nProduct: %s\nCurrent price: %s\nTarget price: %s\nYou'd save: %s\n\nWe'll email you when the price drops.",
		m.result.Product.ProductName,
		formatter.FormatINR(m.result.Product.CurrentPrice),
		formatter.FormatINR(m.result.TargetPrice),
		formatter.FormatINR(m.result.Savings),
	)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
