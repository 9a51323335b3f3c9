// Package tui provides the Bubble Tea study interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/wordflash/internal/model"
	"github.com/verte-zerg/wordflash/internal/selection"
)

// Deck loads the cards a session draws from.
type Deck interface {
	ByTags(ctx context.Context, tags []string) ([]*model.Card, error)
}

// Recorder persists answers.
type Recorder interface {
	RecordKnown(ctx context.Context, id string) error
	RecordDontKnow(ctx context.Context, id string) error
}

// Model implements the Bubble Tea study UI.
type Model struct {
	ctx      context.Context
	deck     Deck
	recorder Recorder
	selector *selection.Selector
	tags     []string
	log      *zap.Logger

	width  int
	height int

	cards    []*model.Card
	current  *model.Card
	revealed bool

	known    int
	dontKnow int
	err      error
}

var (
	wordStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	translationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a study TUI model and draws the first card.
func NewModel(ctx context.Context, deck Deck, recorder Recorder, selector *selection.Selector, tags []string, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{
		ctx:      ctx,
		deck:     deck,
		recorder: recorder,
		selector: selector,
		tags:     tags,
		log:      log,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case " ", "enter":
			if m.current != nil {
				m.revealed = true
			}
			return m, nil
		case "k", "right":
			m.answer(true)
			return m, nil
		case "j", "left":
			m.answer(false)
			return m, nil
		default:
			return m, nil
		}
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.renderCard()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

// Current returns the card on screen, or nil when the deck is empty.
func (m *Model) Current() *model.Card {
	return m.current
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) renderCard() string {
	if m.current == nil {
		var lines []string
		if m.err != nil {
			lines = append(lines, errorStyle.Render(m.err.Error()))
		}
		if len(m.tags) > 0 {
			lines = append(lines, hintStyle.Render(fmt.Sprintf("No cards tagged %s.", strings.Join(m.tags, ", "))))
		} else {
			lines = append(lines, hintStyle.Render("No cards yet. Add some with `wordflash add` or `wordflash import`."))
		}
		return strings.Join(lines, "\n")
	}
	width := m.contentWidth()
	lines := make([]string, 0, 6)
	for _, line := range wrapText(m.current.Word, width) {
		lines = append(lines, wordStyle.Render(line))
	}
	lines = append(lines, "")
	if m.revealed {
		for _, line := range wrapText(m.current.Translation, width) {
			lines = append(lines, translationStyle.Render(line))
		}
		lines = append(lines, "", hintStyle.Render("k/→ knew it · j/← didn't know"))
	} else {
		lines = append(lines, hintStyle.Render("space to reveal"))
	}
	if m.err != nil {
		lines = append(lines, "", errorStyle.Render(m.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Session %d known · %d not known", m.known, m.dontKnow)}
	if m.current != nil {
		if st := m.current.Statistics; st != nil {
			segments = append(segments, fmt.Sprintf("Card %d/%d", st.KnowCount, st.DontKnowCount))
		}
		if w, err := selection.Weight(m.current); err == nil {
			segments = append(segments, fmt.Sprintf("Weight %.2f", w))
		}
	}
	segments = append(segments, fmt.Sprintf("Deck %d", len(m.cards)))
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) answer(known bool) {
	if m.current == nil || !m.revealed {
		return
	}
	id := m.current.ID
	var err error
	if known {
		err = m.recorder.RecordKnown(m.ctx, id)
	} else {
		err = m.recorder.RecordDontKnow(m.ctx, id)
	}
	if err != nil {
		m.log.Error("failed to record answer", zap.String("card_id", id), zap.Error(err))
		if errors.Is(err, model.ErrNotFound) {
			// The card was removed elsewhere; draw another one.
			m.refresh()
		}
		m.err = fmt.Errorf("failed to record answer: %w", err)
		return
	}
	if known {
		m.known++
	} else {
		m.dontKnow++
	}
	m.refresh()
}

// refresh reloads the deck so the next draw sees the latest statistics.
func (m *Model) refresh() {
	m.revealed = false
	cards, err := m.deck.ByTags(m.ctx, m.tags)
	if err != nil {
		m.log.Error("failed to load cards", zap.Error(err))
		m.err = fmt.Errorf("failed to load cards: %w", err)
		m.current = nil
		return
	}
	m.cards = cards
	next, err := m.selector.SelectNext(cards)
	if err != nil {
		m.log.Error("failed to select card", zap.Error(err))
		m.err = fmt.Errorf("failed to select card: %w", err)
		m.current = nil
		return
	}
	m.err = nil
	m.current = next
	if next != nil {
		m.log.Debug("selected card", zap.String("card_id", next.ID), zap.Int("deck", len(cards)))
	}
}
